package hashing

import (
	"testing"
)

func testArgon2Config() Argon2Config {
	return Argon2Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		KeyLength:   32,
	}
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	cases := []Argon2Config{
		{Memory: 1024, Time: 1, Parallelism: 1, KeyLength: 32},
		{Memory: 8192, Time: 0, Parallelism: 1, KeyLength: 32},
		{Memory: 8192, Time: 1, Parallelism: 0, KeyLength: 32},
		{Memory: 8192, Time: 1, Parallelism: 1, KeyLength: 8},
	}
	for _, cfg := range cases {
		if _, err := NewArgon2(cfg); err == nil {
			t.Fatalf("expected NewArgon2(%+v) to fail", cfg)
		}
	}
}

func TestArgon2HashDeterministic(t *testing.T) {
	a, err := NewArgon2(testArgon2Config())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	rec := HashString{ID: "argon2id", Params: a.DefaultParams(), Salt: testSalt}
	first, err := a.Hash(rec, "P@ssw0rd-Ascii")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	second, err := a.Hash(rec, "P@ssw0rd-Ascii")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if first != second {
		t.Fatal("expected deterministic argon2 output")
	}
}

func TestArgon2MalformedParamsFallBack(t *testing.T) {
	var notified int
	a, err := NewArgon2(testArgon2Config(), WithFallbackHook(func(string, string, string) { notified++ }))
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	want, err := a.Hash(HashString{ID: "argon2id", Params: a.DefaultParams(), Salt: testSalt}, "secret")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	got, err := a.Hash(HashString{ID: "argon2id", Params: map[string]string{"m": "tiny", "t": "0", "p": "999"}, Salt: testSalt}, "secret")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if got != want {
		t.Fatal("expected malformed parameters to resolve to configured defaults")
	}
	if notified != 3 {
		t.Fatalf("expected 3 fallback notifications, got %d", notified)
	}
}

func TestArgon2KeyLengthFollowsStoredHash(t *testing.T) {
	a, err := NewArgon2(testArgon2Config())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	stored := encodeKey(make([]byte, 48))
	out, err := a.Hash(HashString{ID: "argon2id", Params: a.DefaultParams(), Salt: testSalt, Hash: stored}, "secret")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if len(out) != len(stored) {
		t.Fatalf("expected %d chars, got %d", len(stored), len(out))
	}
}

func TestArgon2MissingSalt(t *testing.T) {
	a, err := NewArgon2(testArgon2Config())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	if _, err := a.Hash(HashString{ID: "argon2id"}, "secret"); err != ErrMissingSalt {
		t.Fatalf("expected ErrMissingSalt, got %v", err)
	}
}
