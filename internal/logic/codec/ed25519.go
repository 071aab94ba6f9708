package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"escrow-client-sol/internal/pkg/errs"
)

const (
	SignatureLength = 64
	PublicKeyLength = 32

	ed25519HeaderLen = 16

	// CurrentInstruction 作为 instruction_index 的哨兵值，表示数据就在本条指令内
	CurrentInstruction uint16 = math.MaxUint16
)

// Ed25519 原生程序指令头（单签名），与链上 verify_ed25519_signature 的解析一致：
//
//	[0]      num_signatures = 1
//	[1]      padding
//	[2:4]    signature_offset
//	[4:6]    signature_instruction_index
//	[6:8]    public_key_offset
//	[8:10]   public_key_instruction_index
//	[10:12]  message_data_offset
//	[12:14]  message_data_size
//	[14:16]  message_instruction_index
type Ed25519Offsets struct {
	SignatureOffset           uint16
	SignatureInstructionIndex uint16
	PublicKeyOffset           uint16
	PublicKeyInstructionIndex uint16
	MessageOffset             uint16
	MessageSize               uint16
	MessageInstructionIndex   uint16
}

// SignatureVerification 解码后的签名校验指令
type SignatureVerification struct {
	Offsets   Ed25519Offsets
	Signature []byte
	PublicKey []byte
	Message   []byte
}

// ed25519Offsets 是偏移量的唯一计算入口：签名紧跟头部，公钥紧跟签名，消息紧跟公钥
func ed25519Offsets(messageLen int) (Ed25519Offsets, error) {
	sigOffset := ed25519HeaderLen
	pubkeyOffset := sigOffset + SignatureLength
	messageOffset := pubkeyOffset + PublicKeyLength
	if messageLen > math.MaxUint16 || messageOffset+messageLen > math.MaxUint16 {
		return Ed25519Offsets{}, errs.OutOfRange("message", fmt.Sprintf("<= %d bytes", math.MaxUint16-messageOffset), messageLen)
	}
	return Ed25519Offsets{
		SignatureOffset:           uint16(sigOffset),
		SignatureInstructionIndex: CurrentInstruction,
		PublicKeyOffset:           uint16(pubkeyOffset),
		PublicKeyInstructionIndex: CurrentInstruction,
		MessageOffset:             uint16(messageOffset),
		MessageSize:               uint16(messageLen),
		MessageInstructionIndex:   CurrentInstruction,
	}, nil
}

// SignatureVerificationLen 返回编码后的总长度
func SignatureVerificationLen(messageLen int) int {
	return ed25519HeaderLen + SignatureLength + PublicKeyLength + messageLen
}

// EncodeSignatureVerification 构造 Ed25519 程序的指令数据
func EncodeSignatureVerification(signature, publicKey, message []byte) ([]byte, error) {
	if len(signature) != SignatureLength {
		return nil, errs.InvalidLength("signature", SignatureLength, len(signature))
	}
	if len(publicKey) != PublicKeyLength {
		return nil, errs.InvalidLength("public_key", PublicKeyLength, len(publicKey))
	}
	off, err := ed25519Offsets(len(message))
	if err != nil {
		return nil, err
	}

	buf := make([]byte, SignatureVerificationLen(len(message)))
	buf[0] = 1
	buf[1] = 0
	le := binary.LittleEndian
	le.PutUint16(buf[2:4], off.SignatureOffset)
	le.PutUint16(buf[4:6], off.SignatureInstructionIndex)
	le.PutUint16(buf[6:8], off.PublicKeyOffset)
	le.PutUint16(buf[8:10], off.PublicKeyInstructionIndex)
	le.PutUint16(buf[10:12], off.MessageOffset)
	le.PutUint16(buf[12:14], off.MessageSize)
	le.PutUint16(buf[14:16], off.MessageInstructionIndex)

	copy(buf[off.SignatureOffset:], signature)
	copy(buf[off.PublicKeyOffset:], publicKey)
	copy(buf[off.MessageOffset:], message)
	return buf, nil
}

// DecodeSignatureVerification 按头部偏移量取回各字段，并校验所有引用都指向本条指令且不越界
func DecodeSignatureVerification(data []byte) (SignatureVerification, error) {
	var sv SignatureVerification
	if len(data) < ed25519HeaderLen {
		return sv, errs.InvalidLength("ed25519_header", ed25519HeaderLen, len(data))
	}
	if data[0] != 1 {
		return sv, errs.OutOfRange("num_signatures", "1", data[0])
	}

	le := binary.LittleEndian
	off := Ed25519Offsets{
		SignatureOffset:           le.Uint16(data[2:4]),
		SignatureInstructionIndex: le.Uint16(data[4:6]),
		PublicKeyOffset:           le.Uint16(data[6:8]),
		PublicKeyInstructionIndex: le.Uint16(data[8:10]),
		MessageOffset:             le.Uint16(data[10:12]),
		MessageSize:               le.Uint16(data[12:14]),
		MessageInstructionIndex:   le.Uint16(data[14:16]),
	}
	indices := []struct {
		field string
		value uint16
	}{
		{"signature_instruction_index", off.SignatureInstructionIndex},
		{"public_key_instruction_index", off.PublicKeyInstructionIndex},
		{"message_instruction_index", off.MessageInstructionIndex},
	}
	for _, idx := range indices {
		if idx.value != CurrentInstruction {
			return sv, errs.OutOfRange(idx.field, fmt.Sprintf("%d (current instruction)", CurrentInstruction), idx.value)
		}
	}

	sig, err := sliceAt(data, "signature", int(off.SignatureOffset), SignatureLength)
	if err != nil {
		return sv, err
	}
	pk, err := sliceAt(data, "public_key", int(off.PublicKeyOffset), PublicKeyLength)
	if err != nil {
		return sv, err
	}
	msg, err := sliceAt(data, "message", int(off.MessageOffset), int(off.MessageSize))
	if err != nil {
		return sv, err
	}

	sv.Offsets = off
	sv.Signature = sig
	sv.PublicKey = pk
	sv.Message = msg
	return sv, nil
}

func sliceAt(data []byte, field string, offset, size int) ([]byte, error) {
	if offset < ed25519HeaderLen || offset+size > len(data) {
		return nil, errs.OutOfRange(field+"_offset", fmt.Sprintf("[%d, %d]", ed25519HeaderLen, len(data)-size), offset)
	}
	return append([]byte(nil), data[offset:offset+size]...), nil
}
