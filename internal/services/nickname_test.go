package services

import (
	"regexp"
	"sync"
	"testing"
)

func TestNicknameFormat(t *testing.T) {
	gen := NewNicknameGenerator()
	pattern := regexp.MustCompile(`^[A-Z][a-z]+[A-Z][a-z]+\d{1,2}$`)

	for i := 0; i < 50; i++ {
		name := gen.Generate()
		if !pattern.MatchString(name) {
			t.Errorf("Generate() = %q, does not match expected pattern", name)
		}
	}
}

func TestNicknameDeterministicSeed(t *testing.T) {
	a := NewNicknameGeneratorWithSeed(7)
	b := NewNicknameGeneratorWithSeed(7)

	for i := 0; i < 5; i++ {
		if x, y := a.Generate(), b.Generate(); x != y {
			t.Errorf("same seed produced %q and %q", x, y)
		}
	}
}

func TestNicknameConcurrent(t *testing.T) {
	gen := NewNicknameGenerator()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if gen.Generate() == "" {
					t.Error("Generate() returned empty name")
				}
			}
		}()
	}
	wg.Wait()
}

func TestCapitalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"apple", "Apple"},
		{"", ""},
		{"Zoo", "Zoo"},
	}

	for _, tt := range tests {
		if got := capitalize(tt.in); got != tt.want {
			t.Errorf("capitalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
