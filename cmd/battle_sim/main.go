package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"negaboku/internal/config"
	"negaboku/internal/db"
	"negaboku/internal/domain"
	"negaboku/internal/repository"
	"negaboku/internal/service"
)

func main() {
	partyFlag := flag.String("party", "dan,zack,sora,mika", "miembros del grupo separados por coma")
	flag.Parse()

	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	party, err := domain.ParseCharacterIDs(strings.Split(*partyFlag, ","))
	if err != nil {
		log.Fatalf("grupo invalido: %v", err)
	}

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer closeRepo()

	svc := service.NewRelationshipService(repo, service.NewLoggingEventSink(logger), logger)
	sim := &simulator{svc: svc, repo: repo, party: party, out: os.Stdout}

	fmt.Println("===== Simulador de batalla =====")
	fmt.Printf("Grupo: %s\n", strings.Join(idValues(party), ", "))
	printHelp()
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "salir") {
			return
		}
		if strings.EqualFold(line, "ayuda") {
			printHelp()
			continue
		}
		if err := sim.exec(ctx, line); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

func printHelp() {
	fmt.Println("Comandos:")
	fmt.Printf("  battle <%s> <a> <b>\n", strings.Join(battleKindNames(), "|"))
	fmt.Println("  modify <a> <b> <delta> [mutual] [motivo...]")
	fmt.Println("  show")
	fmt.Println("  reset")
	fmt.Println("  ayuda | salir")
}

func openRepository(ctx context.Context, cfg *config.Config) (repository.RelationshipRepository, func(), error) {
	switch cfg.RelationshipStore {
	case config.StorePostgres:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := db.Ping(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("db ping: %w", err)
		}
		if err := db.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository.NewPgRelationshipRepository(pool), pool.Close, nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return repository.NewRedisRelationshipRepository(client), func() { _ = client.Close() }, nil
	default:
		return repository.NewMemoryRelationshipRepository(), func() {}, nil
	}
}

func battleKindNames() []string {
	kinds := domain.BattleEventTypes()
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, k.String())
	}
	return names
}

func idValues(ids []domain.CharacterID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Value())
	}
	return out
}
