package wsclient

import "testing"

func TestFragmentAssemblerReassemblesSplitMessage(t *testing.T) {
	var frag FragmentAssembler

	frag.Start(OpcodeText, []byte("hel"))
	frag.Append([]byte("lo "))
	frag.Append([]byte("world"))

	opcode, payload := frag.Finish()
	if opcode != OpcodeText {
		t.Errorf("opcode = %d, want OpcodeText", opcode)
	}
	if string(payload) != "hello world" {
		t.Errorf("payload = %q, want %q", payload, "hello world")
	}
	if frag.Active() {
		t.Error("assembler should reset to inactive after Finish")
	}
}

func TestFragmentAssemblerStartDiscardsPriorContext(t *testing.T) {
	var frag FragmentAssembler
	frag.Start(OpcodeBinary, []byte("stale"))
	frag.Start(OpcodeText, []byte("fresh"))

	opcode, payload := frag.Finish()
	if opcode != OpcodeText || string(payload) != "fresh" {
		t.Errorf("got opcode=%d payload=%q, want opcode=text payload=%q", opcode, payload, "fresh")
	}
}
