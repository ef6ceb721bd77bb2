// Command main runs the demo data seeder for FittedIn.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"fittedin/internal/bootstrap"
	"fittedin/internal/config"
	"fittedin/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()

	numUsers := flag.Int("users", defaults.NumUsers, "Number of generated users")
	postsPerUser := flag.Int("posts", defaults.PostsPerUser, "Posts per generated user")
	goalsPerUser := flag.Int("goals", defaults.GoalsPerUser, "Goals per generated user")
	connsPerUser := flag.Int("connections", defaults.ConnectionsPerUser, "Accepted connections per generated user")
	domain := flag.String("domain", defaults.Domain, "E-mail domain of generated users")
	roster := flag.String("roster", "", "Roster YAML file (default: built-in roster)")
	clean := flag.Bool("clean", false, "Remove every seeded account before seeding")
	cleanOnly := flag.Bool("clean-only", false, "Remove every seeded account and exit")
	migrate := flag.Bool("migrate", false, "Run schema migration first, even in production")
	randomSeed := flag.Int64("seed", time.Now().UnixNano(), "Random seed for generated data")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{Migrate: *migrate})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	opts := defaults
	opts.NumUsers = *numUsers
	opts.PostsPerUser = *postsPerUser
	opts.GoalsPerUser = *goalsPerUser
	opts.ConnectionsPerUser = *connsPerUser
	opts.Domain = *domain
	opts.RosterPath = *roster
	opts.Clean = *clean
	opts.RandomSeed = *randomSeed

	ctx := context.Background()
	s := seed.NewSeeder(db, opts)

	if *cleanOnly {
		n, err := s.Clean(ctx)
		if err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
		log.Printf("Removed %d seeded accounts", n)
		return
	}

	res, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d roster users (%d already present), %d generated users, %d goals, %d posts, %d connections",
		res.RosterUsers, res.RosterSkips, res.Users, res.Goals, res.Posts, res.Connections)
	log.Printf("Generated users share the password %q", opts.Password)
}
