// Comando de provisão do equipamento do estande: gera o hash da senha
// do operador (OPERATOR_PASSWORD_HASH) e, opcionalmente, prepara o
// banco local antes do primeiro uso.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/caarlos0/env/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/dgenny/conecta/internal/config"
	"github.com/dgenny/conecta/internal/logger"
	"github.com/dgenny/conecta/internal/storage/postgres"
	"github.com/dgenny/conecta/internal/storage/sqlite"
)

func main() {
	password := flag.String("password", "", "Senha do operador para gerar o hash")
	cost := flag.Int("cost", bcrypt.DefaultCost, "Custo do bcrypt")
	initDB := flag.Bool("init-db", false, "Criar o schema do banco configurado")
	flag.Parse()

	if *password == "" && !*initDB {
		log.Fatal("provision: informe -password e/ou -init-db")
	}

	if *password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*password), *cost)
		if err != nil {
			log.Fatalf("provision: erro ao gerar hash: %v", err)
		}
		fmt.Printf("OPERATOR_PASSWORD_HASH=%s\n", hash)
	}

	if *initDB {
		initDatabase()
	}
}

func initDatabase() {
	var storageCfg config.StorageConfig
	if err := env.Parse(&storageCfg); err != nil {
		log.Fatalf("provision: config de storage: %v", err)
	}

	logr, err := logger.New("development", "info")
	if err != nil {
		log.Fatalf("provision: logger: %v", err)
	}
	defer logr.Sync()

	switch storageCfg.Driver {
	case "sqlite", "":
		db, err := sqlite.New(storageCfg.DataDir, logr)
		if err != nil {
			log.Fatalf("provision: sqlite: %v", err)
		}
		db.Close()
		log.Printf("provision: schema SQLite pronto em %s", storageCfg.DataDir)

	case "postgres":
		var dbCfg config.DatabaseConfig
		if err := env.Parse(&dbCfg); err != nil {
			log.Fatalf("provision: config do banco: %v", err)
		}
		db, err := postgres.New(dbCfg, logr)
		if err != nil {
			log.Fatalf("provision: postgres: %v", err)
		}
		db.Close()
		log.Println("provision: schema PostgreSQL pronto")

	default:
		log.Fatalf("provision: driver desconhecido: %s", storageCfg.Driver)
	}
}
