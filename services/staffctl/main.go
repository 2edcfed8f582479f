package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdesk/internal/config"
	"github.com/helpdesk/internal/logger"
	"github.com/helpdesk/internal/model"
	"github.com/helpdesk/internal/repository"
	"github.com/helpdesk/internal/service"
	"github.com/helpdesk/internal/startup"
	"github.com/helpdesk/internal/storage/memory"
)

// staffctl bootstraps staff accounts from the command line:
//
//	staffctl -create -username jdoe -name "Jordan Doe" -role technician -dept "IT Support"
//	staffctl -list
//
// The password is read from STAFF_PASSWORD to keep it out of shell history.
func main() {
	logger.SetPrefix("staffctl")

	create := flag.Bool("create", false, "create a staff account")
	list := flag.Bool("list", false, "list staff accounts")
	username := flag.String("username", "", "login name")
	fullName := flag.String("name", "", "display name")
	role := flag.String("role", string(model.RoleTechnician), "technician or system_manager")
	dept := flag.String("dept", "", "department")
	flag.Parse()

	if *create == *list {
		fmt.Fprintln(os.Stderr, "usage: staffctl -create -username U -name N [-role R] [-dept D] | staffctl -list")
		os.Exit(2)
	}

	cfg := config.Load()
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL())
	if err != nil {
		logger.Errorf("parse db config: %v", err)
		os.Exit(1)
	}
	pool := startup.ConnectDBWithRetry(poolCfg, 30*time.Second, "")
	defer pool.Close()

	staffRepo := repository.NewStaffRepository(pool)
	// No token issuance here; the memory store just satisfies the service.
	authSvc := service.NewAuthService(staffRepo, memory.New())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if *list {
		members, err := staffRepo.ListAll(ctx)
		if err != nil {
			logger.Errorf("list staff: %v", err)
			os.Exit(1)
		}
		for _, m := range members {
			fmt.Printf("%-20s %-15s %-20s %s\n", m.Username, m.Role, m.Department, m.FullName)
		}
		return
	}

	password := os.Getenv("STAFF_PASSWORD")
	if password == "" {
		fmt.Fprintln(os.Stderr, "set STAFF_PASSWORD in the environment")
		os.Exit(2)
	}
	member, err := authSvc.CreateAccount(ctx, *username, *fullName, password, *dept, model.StaffRole(*role))
	if err != nil {
		logger.Errorf("create account: %v", err)
		os.Exit(1)
	}
	fmt.Printf("created %s account %s (%s)\n", member.Role, member.Username, member.ID)
}
