package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"negaboku/internal/config"
	"negaboku/internal/service"
)

// Imprime un access token firmado con JWT_SECRET para las rutas protegidas.
func main() {
	player := flag.String("player", "", "id del jugador o game master")
	role := flag.String("role", "game_master", "rol incluido en el token")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	jwtSvc := service.NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute)
	if !jwtSvc.Enabled() {
		log.Fatal("JWT_SECRET no configurado")
	}
	token, err := jwtSvc.GenerateAccessToken(*player, *role)
	if err != nil {
		log.Fatalf("generar token: %v", err)
	}
	fmt.Println(token)
}
