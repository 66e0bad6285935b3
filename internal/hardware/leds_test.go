package hardware

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"led-service/internal/logger"
)

func boardPwm(chip string) PwmConfig {
	return PwmConfig{
		ChipPath:    chip,
		Channel:     2,
		BaseClockHz: DefaultBaseClockHz,
		Divider:     DefaultDivider,
		Wrap:        DefaultWrap,
	}
}

func TestPwmConversions(t *testing.T) {
	cfg := boardPwm("")
	if f := cfg.FrequencyHz(); f != 500 {
		t.Errorf("FrequencyHz() = %v, want 500", f)
	}
	if p := cfg.PeriodNs(); p != 2_000_000 {
		t.Errorf("PeriodNs() = %d, want 2000000", p)
	}

	tests := []struct {
		level uint32
		want  uint64
	}{
		{0, 0},
		{62501, 2_000_000},
		{65535, 2_000_000},
		{31250, 2_000_000 * 31250 / 62501},
	}
	for _, tt := range tests {
		if got := cfg.DutyNs(tt.level); got != tt.want {
			t.Errorf("DutyNs(%d) = %d, want %d", tt.level, got, tt.want)
		}
	}

	if (PwmConfig{}).FrequencyHz() != 0 || (PwmConfig{}).PeriodNs() != 0 {
		t.Error("zero config should yield zero frequency and period")
	}
}

type mockReleaser struct {
	released map[int]bool
	calls    []string
}

func (m *mockReleaser) ReleaseLED(i int) error {
	m.released[i] = true
	m.calls = append(m.calls, "release")
	return nil
}

func (m *mockReleaser) ReclaimLED(i int) error {
	m.released[i] = false
	m.calls = append(m.calls, "reclaim")
	return nil
}

func fakePwmChip(t *testing.T, exported bool) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "export"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if exported {
		ch := filepath.Join(dir, "pwm2")
		if err := os.Mkdir(ch, 0o755); err != nil {
			t.Fatal(err)
		}
		for _, attr := range []string{"period", "duty_cycle", "enable"} {
			if err := os.WriteFile(filepath.Join(ch, attr), []byte("0\n"), 0o644); err != nil {
				t.Fatal(err)
			}
		}
	}
	return dir
}

func readAttr(t *testing.T, dir, attr string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(dir, "pwm2", attr))
	if err != nil {
		t.Fatal(err)
	}
	return strings.TrimSpace(string(b))
}

func TestSysfsPwmLedLifecycle(t *testing.T) {
	chip := fakePwmChip(t, true)
	rel := &mockReleaser{released: map[int]bool{}}
	p := NewSysfsPwmLed(boardPwm(chip), rel, 0, logger.NewLogger(nil, logger.LogLevelNone))

	if err := p.SetLevel(100); err == nil {
		t.Fatal("SetLevel before Engage succeeded")
	}

	if err := p.Engage(); err != nil {
		t.Fatalf("Engage failed: %v", err)
	}
	if !rel.released[0] {
		t.Error("LED line not released on Engage")
	}
	if got := readAttr(t, chip, "period"); got != "2000000" {
		t.Errorf("period = %q", got)
	}
	if got := readAttr(t, chip, "enable"); got != "1" {
		t.Errorf("enable = %q", got)
	}

	if err := p.SetLevel(65535); err != nil {
		t.Fatal(err)
	}
	if got := readAttr(t, chip, "duty_cycle"); got != "2000000" {
		t.Errorf("duty_cycle = %q, want saturated 2000000", got)
	}

	if err := p.Disengage(); err != nil {
		t.Fatal(err)
	}
	if got := readAttr(t, chip, "enable"); got != "0" {
		t.Errorf("enable = %q after Disengage", got)
	}
	if rel.released[0] {
		t.Error("LED line not reclaimed on Disengage")
	}
	if err := p.Disengage(); err != nil {
		t.Errorf("second Disengage: %v", err)
	}
	if strings.Join(rel.calls, ",") != "release,reclaim" {
		t.Errorf("calls = %v", rel.calls)
	}
}

func TestSysfsPwmLedExportsChannel(t *testing.T) {
	chip := fakePwmChip(t, false)
	rel := &mockReleaser{released: map[int]bool{}}
	p := NewSysfsPwmLed(boardPwm(chip), rel, 0, logger.NewLogger(nil, logger.LogLevelNone))

	// without a kernel nothing creates pwm2, so the attribute writes fail
	if err := p.Engage(); err == nil {
		t.Fatal("Engage succeeded without a channel directory")
	}
	b, err := os.ReadFile(filepath.Join(chip, "export"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "2" {
		t.Errorf("export = %q, want 2", b)
	}
}

func TestNowMsIsMonotonic(t *testing.T) {
	a := NowMs()
	b := NowMs()
	if b < a {
		t.Errorf("NowMs went backwards: %d then %d", a, b)
	}
}
