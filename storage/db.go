package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/ferreirogomes/pregao/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"
)

// DB é a implementação Postgres do estado do marketplace.
type DB struct {
	*sqlx.DB
}

// NewDB conecta-se ao PostgreSQL e executa as migrações.
func NewDB(dataSourceName string) (*DB, error) {
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar ao banco de dados: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("falha ao pingar o banco de dados: %w", err)
	}
	log.Println("Conexão com PostgreSQL estabelecida com sucesso.")

	if err := runMigrations(db.DB); err != nil {
		return nil, fmt.Errorf("falha ao executar migrações: %w", err)
	}

	return &DB{db}, nil
}

// runMigrations executa as migrações usando sql-migrate.
func runMigrations(db *sql.DB) error {
	migrations := &migrate.FileMigrationSource{
		Dir: "./storage/migrations",
	}

	n, err := migrate.Exec(db, "postgres", migrations, migrate.Up)
	if err != nil {
		return fmt.Errorf("erro ao aplicar migrações: %w", err)
	}
	if n > 0 {
		log.Printf("Aplicadas %d migrações ao banco de dados.", n)
	} else {
		log.Println("Nenhuma migração nova para aplicar.")
	}
	return nil
}

// AllocateAuctionID avança o contador de leilões e devolve o id alocado.
func (d *DB) AllocateAuctionID() (uint64, error) {
	var allocated uint64
	query := `UPDATE auction_counter SET next_id = next_id + 1 WHERE id = 1 RETURNING next_id - 1`
	if err := d.Get(&allocated, query); err != nil {
		return 0, fmt.Errorf("falha ao alocar id de leilão: %w", err)
	}
	return allocated, nil
}

// PeekNextAuctionID devolve o próximo id sem consumi-lo.
func (d *DB) PeekNextAuctionID() (uint64, error) {
	var next uint64
	if err := d.Get(&next, `SELECT next_id FROM auction_counter WHERE id = 1`); err != nil {
		return 0, fmt.Errorf("falha ao consultar próximo id de leilão: %w", err)
	}
	return next, nil
}

// SaveAuction grava o leilão (upsert: lances e liquidação sobrescrevem o registro).
func (d *DB) SaveAuction(auction models.Auction) error {
	query := `INSERT INTO auctions (id, asset_contract, asset_id, seller, reserve_price, current_bid, current_bidder, end_time, status, created_at)
		VALUES (:id, :asset_contract, :asset_id, :seller, :reserve_price, :current_bid, :current_bidder, :end_time, :status, :created_at)
		ON CONFLICT (id) DO UPDATE SET current_bid = EXCLUDED.current_bid, current_bidder = EXCLUDED.current_bidder, status = EXCLUDED.status`
	if _, err := d.NamedExec(query, auction); err != nil {
		return fmt.Errorf("falha ao gravar leilão %d: %w", auction.ID, err)
	}
	return nil
}

// GetAuction devolve o leilão pelo id.
func (d *DB) GetAuction(id uint64) (models.Auction, bool, error) {
	var auction models.Auction
	err := d.Get(&auction, `SELECT * FROM auctions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Auction{}, false, nil
	}
	if err != nil {
		return models.Auction{}, false, fmt.Errorf("falha ao buscar leilão %d: %w", id, err)
	}
	return auction, true, nil
}

// GetBalance devolve o saldo sacável da conta (0 para conta desconhecida).
func (d *DB) GetBalance(account string) (uint64, error) {
	var amount uint64
	err := d.Get(&amount, `SELECT amount FROM balances WHERE account = $1`, account)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("falha ao buscar saldo de %s: %w", account, err)
	}
	return amount, nil
}

// SaveBalance grava o saldo da conta (upsert).
func (d *DB) SaveBalance(account string, amount uint64) error {
	query := `INSERT INTO balances (account, amount) VALUES ($1, $2)
		ON CONFLICT (account) DO UPDATE SET amount = EXCLUDED.amount`
	if _, err := d.Exec(query, account, amount); err != nil {
		return fmt.Errorf("falha ao gravar saldo de %s: %w", account, err)
	}
	return nil
}

// SaveEvent adiciona um fato ao feed de auditoria.
func (d *DB) SaveEvent(event models.Event) error {
	query := `INSERT INTO marketplace_events (id, type, auction_id, account, amount, created_at)
		VALUES (:id, :type, :auction_id, :account, :amount, :created_at)`
	if _, err := d.NamedExec(query, event); err != nil {
		return fmt.Errorf("falha ao gravar fato %s: %w", event.ID, err)
	}
	return nil
}

// ListEvents devolve os fatos mais recentes, do mais novo para o mais antigo.
func (d *DB) ListEvents(limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	var events []models.Event
	err := d.Select(&events, `SELECT * FROM marketplace_events ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("falha ao listar fatos: %w", err)
	}
	return events, nil
}
