package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/studenthealthcard/registration/internal/config"
	"github.com/studenthealthcard/registration/internal/registration/application"
	"github.com/studenthealthcard/registration/internal/server"
)

type seedOptions struct {
	envName    string
	count      int
	randomSeed int64
}

var (
	firstNames   = []string{"Ada", "Grace", "Alan", "Katherine", "Linus", "Margaret", "Dennis", "Barbara", "Ken", "Radia"}
	lastNames    = []string{"Lovelace", "Hopper", "Turing", "Johnson", "Torvalds", "Hamilton", "Ritchie", "Liskov", "Thompson", "Perlman"}
	cities       = []string{"London", "Manchester", "Edinburgh", "Cardiff", "Belfast", "Bristol"}
	institutions = []string{"University College London", "University of Manchester", "University of Edinburgh", "Cardiff University", "Queen's University Belfast"}
	messages     = []string{"", "", "Looking forward to the dental benefits.", "Do you cover physiotherapy?", "Please send my card to campus."}
)

func main() {
	opts := parseFlags()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	if err := run(opts, logger); err != nil {
		logger.Error().Err(err).Msg("seed failed")
		os.Exit(1)
	}
}

// run inserts the generated registrations and closes the store before returning.
func run(opts seedOptions, logger zerolog.Logger) error {
	loadEnvFiles(opts.envName)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	backend, err := server.OpenBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer func() {
		if backend.Close == nil {
			return
		}
		if err := backend.Close(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("close store")
		}
	}()

	if err := seed(ctx, backend.Registrations, opts, logger); err != nil {
		return err
	}

	logger.Info().
		Int("registrations", opts.count).
		Str("store", cfg.StoreDriver).
		Str("env", opts.envName).
		Int64("seed", opts.randomSeed).
		Msg("seed complete")
	return nil
}

// seed registers opts.count generated applicants through the command service.
func seed(ctx context.Context, repo application.RegistrationRepository, opts seedOptions, logger zerolog.Logger) error {
	commands := application.NewRegistrationCommandService(repo, nil, logger)
	rng := newRand(opts.randomSeed)

	for i := 0; i < opts.count; i++ {
		if _, err := commands.Register(ctx, generateRegistration(rng, i)); err != nil {
			return fmt.Errorf("insert registration %d: %w", i, err)
		}
	}
	return nil
}

// parseFlags reads the seeder flags.
func parseFlags() seedOptions {
	var opts seedOptions
	flag.StringVar(&opts.envName, "env", "local", "env file name under ../env (e.g. local, staging)")
	flag.IntVar(&opts.count, "count", 25, "number of registrations to insert")
	flag.Int64Var(&opts.randomSeed, "seed", time.Now().UnixNano(), "random seed for reproducible data")
	flag.Parse()

	if opts.count < 0 {
		opts.count = 0
	}
	return opts
}

// loadEnvFiles reads shared.env and <env>.env when present; existing variables win.
func loadEnvFiles(envName string) {
	base := filepath.Clean(filepath.Join("..", "env"))
	for _, file := range []string{
		filepath.Join(base, "shared.env"),
		filepath.Join(base, fmt.Sprintf("%s.env", envName)),
		".env",
	} {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}
}

// generateRegistration builds a plausible applicant; index keeps emails unique.
func generateRegistration(rng *rand.Rand, index int) application.RegisterCommand {
	first := firstNames[rng.Intn(len(firstNames))]
	last := lastNames[rng.Intn(len(lastNames))]
	dob := time.Date(1995+rng.Intn(10), time.Month(1+rng.Intn(12)), 1+rng.Intn(28), 0, 0, 0, 0, time.UTC)

	cmd := application.RegisterCommand{
		Name:        first + " " + last,
		Email:       fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), index),
		Phone:       fmt.Sprintf("07%09d", rng.Intn(1_000_000_000)),
		Street:      fmt.Sprintf("%d High Street", 1+rng.Intn(200)),
		City:        cities[rng.Intn(len(cities))],
		Postal:      fmt.Sprintf("SW%d %dAA", 1+rng.Intn(20), 1+rng.Intn(9)),
		Country:     "United Kingdom",
		Institution: institutions[rng.Intn(len(institutions))],
		StudentID:   fmt.Sprintf("S-%06d", rng.Intn(1_000_000)),
		Message:     messages[rng.Intn(len(messages))],
	}
	if rng.Intn(5) > 0 {
		cmd.DateOfBirth = &dob
	}
	return cmd
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
