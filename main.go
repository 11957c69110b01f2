package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/ferreirogomes/pregao/blockchain_listener"
	"github.com/ferreirogomes/pregao/handlers"
	"github.com/ferreirogomes/pregao/services"
	"github.com/ferreirogomes/pregao/storage"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	solanaRPCURL := envOr("SOLANA_RPC_URL", "https://api.devnet.solana.com")
	solanaWSURL := envOr("SOLANA_WS_URL", "wss://api.devnet.solana.com")
	treasuryKey := os.Getenv("MARKETPLACE_TREASURY_KEY")
	if treasuryKey == "" {
		log.Fatalf("MARKETPLACE_TREASURY_KEY é obrigatória")
	}
	treasury, err := solana.PrivateKeyFromBase58(treasuryKey)
	if err != nil {
		log.Fatalf("Chave privada do tesouro inválida: %v", err)
	}

	// A conta da plataforma recebe as taxas; por padrão é o próprio tesouro.
	platformAccount := envOr("PLATFORM_ACCOUNT", treasury.PublicKey().String())

	feeBps, err := strconv.ParseUint(envOr("PLATFORM_FEE_BPS", "500"), 10, 64)
	if err != nil {
		log.Fatalf("PLATFORM_FEE_BPS inválida: %v", err)
	}
	feeSchedule, err := services.NewFeeSchedule(feeBps)
	if err != nil {
		log.Fatalf("Falha ao configurar taxa da plataforma: %v", err)
	}

	// Com DATABASE_URL o estado vai para o Postgres; sem ela, memória
	// (útil em desenvolvimento, sem durabilidade).
	var store services.Store
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := storage.NewDB(dsn)
		if err != nil {
			log.Fatalf("Falha fatal ao conectar ao banco de dados e aplicar migrações: %v", err)
		}
		defer db.Close()
		store = db
	} else {
		log.Println("DATABASE_URL não configurada; usando armazenamento em memória.")
		store = storage.NewMemoryStore()
	}

	assetRegistry, err := services.NewSolanaAssetRegistry(solanaRPCURL, treasuryKey)
	if err != nil {
		log.Fatalf("Falha ao inicializar registro de ativos Solana: %v", err)
	}
	payoutService, err := services.NewSolanaPayoutService(solanaRPCURL, treasuryKey)
	if err != nil {
		log.Fatalf("Falha ao inicializar serviço de pagamentos Solana: %v", err)
	}

	escrowService := services.NewEscrowService(store, payoutService)
	auctionService := services.NewAuctionService(
		store,
		assetRegistry,
		escrowService,
		feeSchedule,
		platformAccount,
		treasury.PublicKey().String(),
	)

	auctionHandler := handlers.NewAuctionHandler(auctionService)
	escrowHandler := handlers.NewEscrowHandler(escrowService)

	// Listener de reconciliação em goroutine separada.
	listener := blockchain_listener.NewBlockchainListener(solanaWSURL, treasury.PublicKey().String())
	go listener.StartListening()
	log.Println("Listener da blockchain iniciado.")

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.URLFormat)

	r.Route("/auctions", func(r chi.Router) {
		r.Post("/", auctionHandler.CreateAuction)
		r.Get("/next-id", auctionHandler.GetNextAuctionID)
		r.Get("/{id}", auctionHandler.GetAuction)
		r.Get("/{id}/active", auctionHandler.IsActive)
		r.Post("/{id}/bids", auctionHandler.PlaceBid)
		r.Post("/{id}/settle", auctionHandler.SettleAuction)
		r.Post("/{id}/cancel", auctionHandler.CancelAuction)
	})

	r.Route("/platform", func(r chi.Router) {
		r.Get("/fee", auctionHandler.GetPlatformFee)
		r.Put("/fee", auctionHandler.UpdatePlatformFee)
	})

	r.Post("/withdrawals", escrowHandler.Withdraw)
	r.Get("/accounts/{account}/balance", escrowHandler.GetBalance)
	r.Get("/events", auctionHandler.ListEvents)

	port := ":" + envOr("PORT", "8080")
	fmt.Printf("Servidor do marketplace rodando na porta %s...\n", port)
	log.Fatal(http.ListenAndServe(port, r))
}

// envOr lê uma variável de ambiente com valor padrão.
func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
