package customer

import (
	"context"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

var (
	firstWords = []string{
		"Midnight", "Concrete", "Neon", "Static", "Velvet", "Chrome", "Shadow", "Urban",
		"Silent", "Electric", "Frost", "Crimson", "Lunar", "Rogue", "Drift", "Vapor",
		"Hollow", "Golden", "Rapid", "Cosmic",
	}
	secondWords = []string{
		"Runner", "Kid", "Wolf", "Ghost", "Pilot", "Saint", "Rider", "Fox",
		"Prophet", "Nomad", "Bandit", "Hawk", "Echo", "Drifter", "Monk", "Tiger",
		"Voyager", "Raven", "Legend", "Cipher",
	}
	blockedPatterns = []string{
		"ass", "cum", "fag", "nig", "rape", "slut", "tit", "wtf", "dick", "cock",
		"pussy", "shit", "fuck", "cunt", "bitch", "whore", "nazi", "porn", "anal",
	}
)

const (
	generateAttempts = 5
	uniqueAttempts   = 10
	suffixAttempts   = 5
)

func isOffensive(username string) bool {
	lower := strings.ToLower(username)
	for _, p := range blockedPatterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

type usernameGenerator struct {
	taken  func(ctx context.Context, username string) (bool, error)
	intN   func(n int) int
	now    func() time.Time
	first  []string
	second []string
}

func newUsernameGenerator(taken func(ctx context.Context, username string) (bool, error)) *usernameGenerator {
	return &usernameGenerator{
		taken:  taken,
		intN:   rand.IntN,
		now:    time.Now,
		first:  firstWords,
		second: secondWords,
	}
}

// Generate joins a random word from each pool, skipping offensive combinations.
func (g *usernameGenerator) Generate() string {
	for i := 0; i < generateAttempts; i++ {
		name := g.first[g.intN(len(g.first))] + g.second[g.intN(len(g.second))]
		if !isOffensive(name) {
			return name
		}
	}
	return g.fallback()
}

// Unique returns a username no customer holds yet. After uniqueAttempts
// collisions it appends a numeric suffix, then falls back to a timestamp name.
func (g *usernameGenerator) Unique(ctx context.Context) (string, error) {
	for i := 0; i < uniqueAttempts; i++ {
		name := g.Generate()
		taken, err := g.taken(ctx, name)
		if err != nil {
			return "", err
		}
		if !taken {
			return name, nil
		}
	}
	for i := 0; i < suffixAttempts; i++ {
		name := g.Generate() + strconv.Itoa(g.intN(99999))
		taken, err := g.taken(ctx, name)
		if err != nil {
			return "", err
		}
		if !taken {
			return name, nil
		}
	}
	return g.fallback(), nil
}

func (g *usernameGenerator) fallback() string {
	return "User" + strconv.FormatInt(g.now().UnixMilli(), 36)
}
