package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/noah-isme/backend-quotes/internal/db"
)

var (
	flagMigrate bool
	flagDemo    bool
	flagAdmins  []string
)

var rootCmd = &cobra.Command{
	Use:   "seeder",
	Short: "Seed reference data for the quotes service",
	RunE:  runSeed,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		version, dirty, err := db.Version(databaseURL())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
		return nil
	},
}

func init() {
	rootCmd.Flags().BoolVar(&flagMigrate, "migrate", true, "Apply pending migrations first")
	rootCmd.Flags().BoolVar(&flagDemo, "demo", false, "Also insert demo clients and products")
	rootCmd.Flags().StringSliceVar(&flagAdmins, "admin", nil, "User ids to grant the admin profile role")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func databaseURL() string {
	url := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if url == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	return url
}

func runSeed(cmd *cobra.Command, _ []string) error {
	url := databaseURL()
	if flagMigrate {
		if err := db.Migrate(url); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	ctx := cmd.Context()
	pool, err := db.Open(ctx, url, "seeder")
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := seedNamed(ctx, pool, "payment_methods", []string{"Cash", "Bank transfer", "Credit card", "Pix", "Boleto"}); err != nil {
		return err
	}
	if err := seedNamed(ctx, pool, "payment_types", []string{"Upfront", "Installments", "On delivery"}); err != nil {
		return err
	}
	if err := seedNamed(ctx, pool, "shipping_options", []string{"Pickup", "Own fleet", "Carrier"}); err != nil {
		return err
	}
	for _, userID := range flagAdmins {
		if err := grantAdmin(ctx, pool, userID); err != nil {
			return err
		}
	}
	if flagDemo {
		if err := seedDemo(ctx, pool); err != nil {
			return err
		}
	}

	log.Println("Seeding completed successfully!")
	return nil
}

func seedNamed(ctx context.Context, pool *pgxpool.Pool, table string, names []string) error {
	fmt.Printf("Seeding %s...\n", table)
	query := fmt.Sprintf(`INSERT INTO %[1]s (name)
		SELECT $1::text WHERE NOT EXISTS (SELECT 1 FROM %[1]s WHERE name = $1::text)`, table)
	for _, name := range names {
		if _, err := pool.Exec(ctx, query, name); err != nil {
			return fmt.Errorf("seed %s %q: %w", table, name, err)
		}
	}
	return nil
}

func grantAdmin(ctx context.Context, pool *pgxpool.Pool, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil
	}
	_, err := pool.Exec(ctx, `INSERT INTO profiles (user_id, role) VALUES ($1, 'admin')
		ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role`, userID)
	if err != nil {
		return fmt.Errorf("grant admin to %s: %w", userID, err)
	}
	fmt.Printf("Granted admin to %s\n", userID)
	return nil
}

func seedDemo(ctx context.Context, pool *pgxpool.Pool) error {
	clients := []struct {
		Name  string
		Email string
		Phone string
	}{
		{"Construtora Horizonte Ltda", "compras@horizonte.example", "+55 11 3000-1000"},
		{"Padaria São João", "contato@saojoao.example", "+55 21 2500-2200"},
		{"Maria Oliveira", "maria.oliveira@example.com", "+55 31 99999-0001"},
	}
	fmt.Println("Seeding demo clients...")
	for _, c := range clients {
		if _, err := pool.Exec(ctx, `INSERT INTO clients (name, email, phone)
			SELECT $1::text, $2::text, $3::text WHERE NOT EXISTS (SELECT 1 FROM clients WHERE name = $1::text)`, c.Name, c.Email, c.Phone); err != nil {
			return fmt.Errorf("seed client %q: %w", c.Name, err)
		}
	}

	products := []struct {
		Code  string
		Name  string
		Price string
	}{
		{"CAB-001", "Electrical cable 2.5mm (100m)", "389.90"},
		{"LMP-010", "LED panel 60x60 40W", "129.50"},
		{"DIS-032", "Circuit breaker 32A", "24.75"},
		{"INS-100", "Installation service (hour)", "150.00"},
	}
	fmt.Println("Seeding demo products...")
	for _, p := range products {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, `INSERT INTO products (code, name, price)
			SELECT $1::text, $2::text, $3::numeric WHERE NOT EXISTS (SELECT 1 FROM products WHERE code = $1::text)`, p.Code, p.Name, price.String()); err != nil {
			return fmt.Errorf("seed product %s: %w", p.Code, err)
		}
	}
	return nil
}
