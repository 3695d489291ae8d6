package money

import "testing"

func TestSubtractFeeAddsBackToOriginal(t *testing.T) {
	amount := MustParse("50.0")
	split := SubtractFee(amount, 5)

	if got := split.Fee.Add(split.Payout).String(); got != amount.String() {
		t.Fatalf("fee+payout = %s, want %s", got, amount.String())
	}

	wantFee := MustParse("2.5")
	if split.Fee.Cmp(wantFee) != 0 {
		t.Fatalf("fee = %s, want %s", split.Fee.String(), wantFee.String())
	}
}

func TestToNanoFromNanoRoundTrip(t *testing.T) {
	amount := MustParse("12.345")
	nano := amount.ToNano()
	if nano != 12_345_000_000 {
		t.Fatalf("ToNano() = %d, want 12345000000", nano)
	}

	back := FromNano(nano)
	if back.Cmp(amount) != 0 {
		t.Fatalf("FromNano(ToNano(x)) = %s, want %s", back.String(), amount.String())
	}
}

func TestIsPositive(t *testing.T) {
	if Zero.IsPositive() {
		t.Fatal("zero should not be positive")
	}
	if !MustParse("0.000000001").IsPositive() {
		t.Fatal("smallest positive nanounit should be positive")
	}
}

func TestAddSub(t *testing.T) {
	a := MustParse("10")
	b := MustParse("3")
	if got := a.Add(b).String(); got != "13.000000000" {
		t.Fatalf("Add = %s", got)
	}
	if got := a.Sub(b).String(); got != "7.000000000" {
		t.Fatalf("Sub = %s", got)
	}
}
