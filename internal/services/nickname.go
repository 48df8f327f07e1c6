package services

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/tyler-smith/go-bip39/wordlists"
)

// wordlist is the BIP39 English wordlist (2048 words).
// Two words plus a number gives 2048 × 2048 × 100 = 419 million names.
var wordlist = wordlists.English

// NicknameGenerator hands out human-readable nicknames for clients that
// did not pick one.
type NicknameGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewNicknameGenerator creates a NicknameGenerator with its own random source.
func NewNicknameGenerator() *NicknameGenerator {
	return NewNicknameGeneratorWithSeed(time.Now().UnixNano())
}

func NewNicknameGeneratorWithSeed(seed int64) *NicknameGenerator {
	return &NicknameGenerator{rng: rand.New(rand.NewSource(seed))}
}

// Generate returns a PascalCase name like "HappyTiger42". Names are not
// guaranteed unique; the device id is what tells users apart.
func (g *NicknameGenerator) Generate() string {
	g.mu.Lock()
	word1 := wordlist[g.rng.Intn(len(wordlist))]
	word2 := wordlist[g.rng.Intn(len(wordlist))]
	num := g.rng.Intn(100)
	g.mu.Unlock()

	return fmt.Sprintf("%s%s%d", capitalize(word1), capitalize(word2), num)
}

// capitalize returns the string with its first letter uppercased.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
