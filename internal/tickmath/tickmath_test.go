package tickmath

import "testing"

func TestRoundUp(t *testing.T) {
	cases := []struct {
		tick, spacing, want int32
	}{
		{0, 60, 0},
		{60, 60, 60},
		{1, 60, 60},
		{59, 60, 60},
		{61, 60, 120},
		{-1, 60, 0},
		{-59, 60, 0},
		{-60, 60, -60},
		{-61, 60, -60},
		{-887272, 60, -887220},
		{887271, 60, 887280},
	}

	for _, tc := range cases {
		got, err := RoundUp(tc.tick, tc.spacing)
		if err != nil {
			t.Fatalf("RoundUp(%d, %d): %v", tc.tick, tc.spacing, err)
		}
		if got != tc.want {
			t.Fatalf("RoundUp(%d, %d) = %d, want %d", tc.tick, tc.spacing, got, tc.want)
		}
		if got%tc.spacing != 0 {
			t.Fatalf("RoundUp(%d, %d) = %d not on grid", tc.tick, tc.spacing, got)
		}
		if got < tc.tick {
			t.Fatalf("RoundUp(%d, %d) = %d moved down", tc.tick, tc.spacing, got)
		}
	}
}

func TestRoundDown(t *testing.T) {
	cases := []struct {
		tick, spacing, want int32
	}{
		{0, 60, 0},
		{60, 60, 60},
		{1, 60, 0},
		{59, 60, 0},
		{61, 60, 60},
		{-1, 60, -60},
		{-59, 60, -60},
		{-60, 60, -60},
		{-61, 60, -120},
		{887272, 60, 887220},
		{-887271, 60, -887280},
	}

	for _, tc := range cases {
		got, err := RoundDown(tc.tick, tc.spacing)
		if err != nil {
			t.Fatalf("RoundDown(%d, %d): %v", tc.tick, tc.spacing, err)
		}
		if got != tc.want {
			t.Fatalf("RoundDown(%d, %d) = %d, want %d", tc.tick, tc.spacing, got, tc.want)
		}
		if got%tc.spacing != 0 {
			t.Fatalf("RoundDown(%d, %d) = %d not on grid", tc.tick, tc.spacing, got)
		}
		if got > tc.tick {
			t.Fatalf("RoundDown(%d, %d) = %d moved up", tc.tick, tc.spacing, got)
		}
	}
}

func TestRoundIdempotentOnceAligned(t *testing.T) {
	spacings := []int32{1, 10, 60, 200}
	for _, s := range spacings {
		for tick := int32(-500); tick <= 500; tick += 7 {
			up, err := RoundUp(tick, s)
			if err != nil {
				t.Fatalf("RoundUp(%d, %d): %v", tick, s, err)
			}
			down, err := RoundDown(up, s)
			if err != nil {
				t.Fatalf("RoundDown(%d, %d): %v", up, s, err)
			}
			if down != up {
				t.Fatalf("RoundDown(RoundUp(%d, %d)) = %d, want %d", tick, s, down, up)
			}
		}
	}
}

func TestRoundRejectsBadSpacing(t *testing.T) {
	if _, err := RoundUp(10, 0); err == nil {
		t.Fatalf("expected error for zero spacing")
	}
	if _, err := RoundDown(10, -5); err == nil {
		t.Fatalf("expected error for negative spacing")
	}
}
