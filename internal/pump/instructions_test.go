package pump

import (
	"encoding/binary"
	"testing"
)

func tradeData(discm [8]byte, amount, solLimit uint64) []byte {
	buf := append([]byte{}, discm[:]...)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], amount)
	buf = append(buf, b[:]...)
	binary.LittleEndian.PutUint64(b[:], solLimit)
	buf = append(buf, b[:]...)
	return buf
}

func TestDecodeInstructionBuy(t *testing.T) {
	ix, err := DecodeInstruction(tradeData([8]byte{102, 6, 61, 18, 1, 218, 235, 234}, 1000, 2000000000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ix.Kind != InstructionBuy || ix.Name != "buy" {
		t.Fatalf("kind mismatch: %+v", ix)
	}
	if ix.Amount != 1000 || ix.SolLimit != 2000000000 {
		t.Fatalf("args mismatch: %+v", ix)
	}
}

func TestDecodeInstructionSell(t *testing.T) {
	ix, err := DecodeInstruction(tradeData([8]byte{51, 230, 133, 164, 1, 127, 131, 173}, 42, 7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ix.Kind != InstructionSell || ix.Name != "sell" {
		t.Fatalf("kind mismatch: %+v", ix)
	}
	if ix.Amount != 42 || ix.SolLimit != 7 {
		t.Fatalf("args mismatch: %+v", ix)
	}
}

func TestDecodeInstructionCreate(t *testing.T) {
	ix, err := DecodeInstruction([]byte{24, 30, 200, 40, 5, 28, 7, 119})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ix.Kind != InstructionOther || ix.Name != "create" {
		t.Fatalf("kind mismatch: %+v", ix)
	}
}

func TestDecodeInstructionUnknown(t *testing.T) {
	if _, err := DecodeInstruction(make([]byte, 24)); err == nil {
		t.Fatalf("expected error for unknown discriminator")
	}
}

func TestDecodeInstructionTruncatedArgs(t *testing.T) {
	data := tradeData([8]byte{102, 6, 61, 18, 1, 218, 235, 234}, 1, 2)[:12]
	if _, err := DecodeInstruction(data); err == nil {
		t.Fatalf("expected error for truncated args")
	}
}

func TestDecodeInstructionShortBuffer(t *testing.T) {
	if _, err := DecodeInstruction([]byte{1, 2}); err == nil {
		t.Fatalf("expected error for short buffer")
	}
}
