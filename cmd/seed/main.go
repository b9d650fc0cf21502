package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gorm.io/gorm"

	"boxoffice/internal/domain"
	"boxoffice/internal/shared/config"
	"boxoffice/internal/shared/constants"
	"boxoffice/internal/shared/database"
	"boxoffice/internal/shared/middleware"
	"boxoffice/internal/shows"
	"boxoffice/internal/store/pgstore"
	"boxoffice/pkg/cache"
	"boxoffice/pkg/logger"
)

type Seeder struct {
	db    *database.DB
	shows shows.Service
}

func main() {
	clean := pflag.Bool("clean", true, "truncate every box office table before seeding")
	tokenTTL := pflag.Duration("token-ttl", 24*time.Hour, "lifetime of the printed development tokens")
	pflag.Parse()

	_ = godotenv.Load()
	fmt.Println("🌱 Starting box office seeder...")

	cfg := config.Load()
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{
		db:    db,
		shows: shows.NewService(shows.Config{Store: pgstore.New(db.PostgreSQL), Logger: logger.GetDefault()}),
	}

	if *clean {
		fmt.Println("\n🧹 Cleaning database...")
		if err := seeder.CleanDatabase(); err != nil {
			log.Fatalf("Failed to clean database: %v", err)
		}
	}

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(context.Background()); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	fmt.Println("\n🔑 Development tokens:")
	for _, role := range []string{middleware.RoleAdmin, middleware.RoleUser} {
		token, err := devToken(cfg.JWT.Secret, role, *tokenTTL)
		if err != nil {
			log.Fatalf("Failed to sign %s token: %v", role, err)
		}
		fmt.Printf("  %-5s %s\n", role, token)
	}

	fmt.Println("\n🎉 Seeding completed!")
}

// CleanDatabase truncates all tables, dependents first.
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"cancellation_invoice_items",
		"cancellation_invoices",
		"tickets",
		"orders",
		"show_sector_pricings",
		"shows",
		"events",
		"seats",
		"sectors",
		"standing_sectors",
		"halls",
	}
	return s.db.PostgreSQL.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			fmt.Printf("  Truncating table: %s\n", table)
			if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
				return fmt.Errorf("failed to truncate table %s: %w", table, err)
			}
		}
		return nil
	})
}

func (s *Seeder) SeedAll(ctx context.Context) error {
	theatre, err := s.SeedHall("Grand Theatre", "Main Hall",
		[]sectorDef{{"Stalls", 10, 20}, {"Balcony", 5, 16}},
		[]standingDef{{"Pit", 200}})
	if err != nil {
		return err
	}
	arena, err := s.SeedHall("Riverside Arena", "Arena",
		[]sectorDef{{"Tier A", 20, 30}},
		[]standingDef{{"Floor", 1500}})
	if err != nil {
		return err
	}

	tour, err := s.shows.CreateEvent(ctx, shows.CreateEventInput{
		Name:        "Northern Lights Tour",
		Description: "Two nights, two venues.",
	})
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	fmt.Printf("  ✅ Created event: %s\n", tour.Name)

	firstNight := time.Now().UTC().Add(30 * 24 * time.Hour).Truncate(time.Hour)
	plans := []struct {
		hall   *domain.Hall
		title  string
		at     time.Time
		prices []string // one per sector, then one per standing sector
	}{
		{theatre, "Northern Lights: Grand Theatre", firstNight, []string{"89.00", "54.50", "35.00"}},
		{arena, "Northern Lights: Riverside Arena", firstNight.Add(24 * time.Hour), []string{"65.00", "45.00"}},
	}
	for _, p := range plans {
		in := shows.CreateShowInput{EventID: &tour.ID, HallID: p.hall.ID, Title: p.title, StartsAt: p.at}
		i := 0
		for _, sec := range p.hall.Sectors {
			in.Prices = append(in.Prices, shows.PriceInput{SectorID: &sec.ID, Price: p.prices[i]})
			i++
		}
		for _, ss := range p.hall.StandingSectors {
			in.Prices = append(in.Prices, shows.PriceInput{StandingSectorID: &ss.ID, Price: p.prices[i]})
			i++
		}
		show, err := s.shows.CreateShow(ctx, in)
		if err != nil {
			return fmt.Errorf("failed to create show %q: %w", p.title, err)
		}
		fmt.Printf("  ✅ Created show: %s (capacity %d, id %s)\n", show.Title, show.Capacity, show.ID)
	}

	if s.db.Redis != nil {
		if err := cache.NewService(s.db.Redis, logger.GetDefault()).DeletePattern(ctx, constants.CACHE_PREFIX+":*"); err != nil {
			log.Printf("Warning: failed to clear cache: %v", err)
		}
	}
	return nil
}

type sectorDef struct {
	name       string
	rows, cols int
}

type standingDef struct {
	name     string
	capacity int
}

// SeedHall writes a hall layout directly; the catalog has no write API.
func (s *Seeder) SeedHall(venue, name string, sectors []sectorDef, standing []standingDef) (*domain.Hall, error) {
	h := &domain.Hall{ID: uuid.New(), VenueName: venue, Name: name, CreatedAt: time.Now().UTC()}
	for _, def := range sectors {
		sec := domain.Sector{ID: uuid.New(), HallID: h.ID, Name: def.name, Rows: def.rows, Columns: def.cols}
		for r := 1; r <= def.rows; r++ {
			for c := 1; c <= def.cols; c++ {
				sec.Seats = append(sec.Seats, domain.Seat{ID: uuid.New(), SectorID: sec.ID, Row: r, Column: c})
			}
		}
		h.Sectors = append(h.Sectors, sec)
	}
	for _, def := range standing {
		h.StandingSectors = append(h.StandingSectors, domain.StandingSector{
			ID: uuid.New(), HallID: h.ID, Name: def.name, Capacity: def.capacity,
		})
	}

	if err := s.db.PostgreSQL.Session(&gorm.Session{FullSaveAssociations: true}).Create(h).Error; err != nil {
		return nil, fmt.Errorf("failed to create hall %s: %w", name, err)
	}
	fmt.Printf("  ✅ Created hall: %s / %s\n", venue, name)
	return h, nil
}

func devToken(secret, role string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": uuid.NewString(),
		"role":    role,
		"type":    "access",
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
