package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"escrow-client-sol/internal/config"
	"escrow-client-sol/internal/consts"
	"escrow-client-sol/internal/logic/codec"
	"escrow-client-sol/internal/pkg/types"
	"escrow-client-sol/internal/service"
	"escrow-client-sol/internal/svc"
	"escrow-client-sol/pkg/logger"

	"github.com/zeromicro/go-zero/core/logx"
	zerosvc "github.com/zeromicro/go-zero/core/service"
)

const usage = `usage: escrowctl [-f config] <command> [flags]

commands:
  derive      -tx <id> | -entity <pubkey>   derive escrow / reputation addresses
  create      [-tx <id>] -api <pubkey> -sol <amount> [-lock <seconds>]   id generated when -tx is omitted
  dispute     -tx <id>
  release     -tx <id>
  resolve     -tx <id> -quality <0..100> -refund <0..100>
  resolve-sb  -tx <id> -feed <pubkey> -quality <0..100> -refund <0..100>
  status      -tx <id>
  reputation  -entity <pubkey>
  init-rep    -entity <pubkey>
  rate-limit  [-entity <pubkey>]   defaults to the agent
  check-rate
  last        -tx <id>
  watch       -tx <id>[,<id>...] [-interval 5s]
  config      print the effective configuration
`

var configFile = flag.String("f", "etc/escrowctl.yaml", "the config file")

func main() {
	defer func() {
		if r := recover(); r != nil {
			logx.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
			os.Exit(2)
		}
	}()

	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	path := *configFile
	if _, err := os.Stat(path); err != nil {
		path = "" // 没有配置文件时只使用默认值和环境变量
	}
	c, err := config.Load(path)
	if err != nil {
		logx.Errorf("load config failed: %v", err)
		os.Exit(1)
	}
	if err := logger.Init(c.LogConf.ToLogOption()); err != nil {
		logx.Errorf("init logger failed: %v", err)
		os.Exit(1)
	}
	defer logger.Sync()

	serviceContext, err := svc.NewServiceContext(c)
	if err != nil {
		logx.Errorf("init service context failed: %v", err)
		os.Exit(1)
	}
	defer serviceContext.Close()

	escrows := service.NewEscrowService(serviceContext)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, serviceContext, escrows, flag.Arg(0), flag.Args()[1:]); err != nil {
		logx.Errorf("%s failed: %v", flag.Arg(0), err)
		os.Exit(1)
	}
}

func run(ctx context.Context, sc *svc.ServiceContext, escrows *service.EscrowService, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	txID := fs.String("tx", "", "transaction id")
	api := fs.String("api", "", "api wallet pubkey")
	entity := fs.String("entity", "", "entity pubkey")
	feed := fs.String("feed", "", "switchboard pull feed pubkey")
	sol := fs.Float64("sol", 0, "escrow amount in SOL")
	lock := fs.Int64("lock", 86400, "time lock in seconds")
	quality := fs.Uint("quality", 0, "quality score 0..100")
	refund := fs.Uint("refund", 0, "refund percentage 0..100")
	interval := fs.Duration("interval", 5*time.Second, "watch poll interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch cmd {
	case "derive":
		if *txID != "" {
			addr, err := sc.Addresses.Escrow(*txID)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"escrow": addr.Address.String(), "bump": addr.Bump})
		}
		pk, err := parsePubkey("entity", *entity)
		if err != nil {
			return err
		}
		rep, err := sc.Addresses.Reputation(pk)
		if err != nil {
			return err
		}
		rl, err := sc.Addresses.RateLimit(pk)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{
			"reputation": rep.Address.String(), "reputation_bump": rep.Bump,
			"rate_limit": rl.Address.String(), "rate_limit_bump": rl.Bump,
		})

	case "create":
		apiKey, err := parsePubkey("api", *api)
		if err != nil {
			return err
		}
		lamports, err := codec.SOLToLamports("sol", *sol, consts.LamportsPerSOL)
		if err != nil {
			return err
		}
		receipt, err := escrows.CreateEscrow(ctx, service.CreateEscrowRequest{
			Api: apiKey, Amount: lamports, TimeLock: *lock, TransactionID: *txID,
		})
		if err != nil {
			return err
		}
		return printJSON(map[string]any{
			"transaction_id": receipt.TransactionID,
			"signature":      receipt.Signature,
			"slot":           receipt.Slot,
			"escrow":         receipt.Address.Address.String(),
		})

	case "dispute":
		return printResult(escrows.MarkDisputed(ctx, *txID))

	case "release":
		return printResult(escrows.ReleaseFunds(ctx, *txID))

	case "resolve":
		if *quality > 100 || *refund > 100 {
			return fmt.Errorf("quality and refund must be within 0..100")
		}
		return printResult(escrows.ResolveDispute(ctx, *txID, uint8(*quality), uint8(*refund)))

	case "resolve-sb":
		if *quality > 100 || *refund > 100 {
			return fmt.Errorf("quality and refund must be within 0..100")
		}
		feedKey, err := parsePubkey("feed", *feed)
		if err != nil {
			return err
		}
		return printResult(escrows.ResolveDisputeSwitchboard(ctx, *txID, feedKey, uint8(*quality), uint8(*refund)))

	case "status":
		acc, addr, err := escrows.GetEscrow(ctx, *txID)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{
			"address":    addr.String(),
			"agent":      acc.Agent.String(),
			"api":        acc.Api.String(),
			"amount":     acc.Amount,
			"status":     acc.EscrowStatus().String(),
			"created_at": time.Unix(acc.CreatedAt, 0).UTC().Format(time.RFC3339),
			"expires_at": time.Unix(acc.ExpiresAt, 0).UTC().Format(time.RFC3339),
			"quality":    acc.QualityScore,
			"refund":     acc.RefundPercentage,
		})

	case "reputation":
		pk, err := parsePubkey("entity", *entity)
		if err != nil {
			return err
		}
		rep, addr, err := escrows.GetReputation(ctx, pk)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"address": addr.String(), "account": rep})

	case "init-rep":
		pk, err := parsePubkey("entity", *entity)
		if err != nil {
			return err
		}
		receipt, err := escrows.InitReputation(ctx, pk)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"signature": receipt.Signature, "reputation": receipt.Address.Address.String()})

	case "rate-limit":
		var pk types.Pubkey
		switch {
		case *entity != "":
			parsed, err := parsePubkey("entity", *entity)
			if err != nil {
				return err
			}
			pk = parsed
		case sc.Agent != nil:
			pk = sc.Agent.PublicKey()
		default:
			return errors.New("missing -entity and no agent configured")
		}
		rl, addr, err := escrows.GetRateLimit(ctx, pk)
		if err != nil {
			return err
		}
		hourly, daily := rl.Remaining(time.Now().Unix())
		return printJSON(map[string]any{
			"address":          addr.String(),
			"level":            rl.Level().String(),
			"limits":           rl.Level().Limits(),
			"remaining_hourly": hourly,
			"remaining_daily":  daily,
			"account":          rl,
		})

	case "check-rate":
		return printResult(escrows.CheckRateLimit(ctx))

	case "last":
		sig, recorded, status, err := escrows.LastSubmission(ctx, *txID)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{"signature": sig, "recorded": recorded.String(), "ledger": status})

	case "config":
		out, err := sc.Config.Dump()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err

	case "watch":
		return watch(ctx, escrows, strings.Split(*txID, ","), *interval)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func watch(ctx context.Context, escrows *service.EscrowService, txIDs []string, interval time.Duration) error {
	watcher, err := service.NewEscrowWatcher(escrows, interval, txIDs, func(c service.StatusChange) {
		if c.Account == nil {
			logx.Infof("escrow %s closed", c.TransactionID)
			return
		}
		logx.Infof("escrow %s: %s", c.TransactionID, c.Account.EscrowStatus())
	})
	if err != nil {
		return err
	}

	sg := zerosvc.NewServiceGroup()
	sg.Add(watcher)
	go sg.Start()
	logx.Infof("watching %d escrow(s)", len(txIDs))

	<-ctx.Done()
	logx.Info("Shutting down services...")
	sg.Stop()
	return nil
}

func parsePubkey(field, s string) (types.Pubkey, error) {
	if s == "" {
		return types.Pubkey{}, errors.New("missing -" + field)
	}
	pk, err := types.TryPubkeyFromBase58(s)
	if err != nil {
		return types.Pubkey{}, fmt.Errorf("invalid -%s: %w", field, err)
	}
	return pk, nil
}

func printResult(res any, err error) error {
	if err != nil {
		return err
	}
	return printJSON(res)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
