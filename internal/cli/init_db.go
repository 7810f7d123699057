package cli

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
)

// InitDBCommand creates the library schema and optionally loads sample data.
type InitDBCommand struct {
	DatabasePath string
	Seed         bool
	BcryptCost   int
}

func NewInitDBCommand() *InitDBCommand {
	return &InitDBCommand{}
}

func (cmd *InitDBCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("init-db", flag.ContinueOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the library database file")
	fs.BoolVar(&cmd.Seed, "seed", false, "Insert the sample accounts and catalog")
	fs.IntVar(&cmd.BcryptCost, "bcrypt-cost", bcrypt.DefaultCost, "bcrypt cost for seeded passwords")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s init-db [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create or migrate the library database.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s init-db -db ./library.db -seed\n", os.Args[0])
	}

	return fs.Parse(args)
}

func (cmd *InitDBCommand) Run() error {
	fmt.Println("Library Database Setup")
	fmt.Println("======================")

	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	fmt.Printf("Schema ready at %s\n", cmd.DatabasePath)

	if !cmd.Seed {
		return nil
	}

	cost := cmd.BcryptCost
	result, err := db.Seed(func(password string) (string, error) {
		return auth.HashPassword(password, cost)
	})
	if err != nil {
		return fmt.Errorf("failed to seed database: %w", err)
	}

	fmt.Printf("Sample users created: %d\n", result.UsersCreated)
	fmt.Printf("Sample books created: %d\n", result.BooksCreated)
	return nil
}
