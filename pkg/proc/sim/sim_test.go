package sim

import "testing"

func TestMemoryBigEndian(t *testing.T) {
	c := New()
	c.Map(0x1000, 0x100)

	if err := c.WriteU32(0x1000, 0x11223344); err != nil {
		t.Fatal(err)
	}
	hi, err := c.ReadU8(0x1000)
	if err != nil {
		t.Fatal(err)
	}
	if hi != 0x11 {
		t.Errorf("first byte of u32 = %#x, want 0x11 (big-endian guest)", hi)
	}
	h, err := c.ReadU16(0x1002)
	if err != nil {
		t.Fatal(err)
	}
	if h != 0x3344 {
		t.Errorf("low halfword = %#x, want 0x3344", h)
	}
}

func TestMemoryFaults(t *testing.T) {
	c := New()
	c.Map(0x1000, 0x10)

	if _, err := c.ReadU8(0xfff); err == nil {
		t.Error("read below region did not fault")
	}
	if _, err := c.ReadU32(0x100e); err == nil {
		t.Error("read straddling region end did not fault")
	}
	if err := c.WriteU64(0x2000, 1); err == nil {
		t.Error("write to unmapped address did not fault")
	}
	if _, err := c.slice(0x2000, 1); err == nil {
		t.Error("slice of unmapped address did not fault")
	}
}

func TestCString(t *testing.T) {
	c := New()
	c.Map(0x1000, 0x20)

	if err := c.WriteCString(0x1000, "hello"); err != nil {
		t.Fatal(err)
	}
	s, err := c.ReadCString(0x1000)
	if err != nil {
		t.Fatal(err)
	}
	if s != "hello" {
		t.Errorf("ReadCString = %q, want %q", s, "hello")
	}

	// A string with no terminator before the end of the region faults.
	for i := uint32(0); i < 0x20; i++ {
		c.WriteU8(0x1000+i, 'x')
	}
	if _, err := c.ReadCString(0x1000); err == nil {
		t.Error("unterminated string did not fault")
	}
}

func TestCallstack(t *testing.T) {
	c := New()
	frames, err := c.Callstack()
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 0 {
		t.Errorf("fresh CPU has %d frames, want 0", len(frames))
	}

	c.PushFrame(0x80004000, "main")
	c.PushFrame(0x80004100, "OSSleepThread")
	frames, err = c.Callstack()
	if err != nil {
		t.Fatal(err)
	}
	if len(frames) != 2 || frames[1].Name != "OSSleepThread" {
		t.Errorf("unexpected frames: %v", frames)
	}

	c.SetStackAvailable(false)
	if _, err := c.Callstack(); err == nil {
		t.Error("unavailable stack did not error")
	}
}
