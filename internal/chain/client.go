// Package chain wires the escrow wallet module (component E) to the TON
// network via tonutils-go. The teacher's internal/ton/client.go is an
// unimplemented placeholder with no retry logic; this package replaces it
// with a real lite-client connection, wallet generation, balance queries,
// and confirmation-polled transfers, wrapped in the fail-over retry shape
// grounded on payoutd's Transfer/WaitForConfirmations pattern
// (other_examples/josephblackelite-nhbchain).
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/sponsorlink/dealcore/internal/privacy"
	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/ton"
	"github.com/xssnick/tonutils-go/ton/wallet"
	"go.uber.org/zap"
)

// ErrConfirmationTimeout is returned by TransferFunds/TransferFromMaster
// when the submitted transfer's sequence number does not advance within
// the poll deadline.
var ErrConfirmationTimeout = errors.New("chain: confirmation timeout")

const (
	confirmPollInterval = 3 * time.Second
	confirmDeadline     = 60 * time.Second
	maxAttempts         = 3
)

// endpoint is one lite-server connection pool plus its own failure
// counter. withRetry chooses the endpoint by attempt index (switching after
// ceil(len(endpoints)/2) attempts); the counter only records failures and
// does not affect which endpoint is chosen.
type endpoint struct {
	name    string
	pool    *liteclient.ConnectionPool
	api     ton.APIClientWrapped
	failure int
}

// Client holds the primary/fallback TON RPC endpoints and the process-wide
// master wallet (when one is configured — its absence disables the
// privacy relay's second hop).
type Client struct {
	endpoints []*endpoint
	cipher    *privacy.FieldCipher
	masterW   *wallet.Wallet
	network   string
	log       *zap.Logger
}

// New connects to the primary and (optional) fallback lite-server config
// URLs and, if masterMnemonic is non-empty, derives the master wallet used
// as the middle hop of the release/refund saga.
func New(ctx context.Context, network, primaryConfigURL, fallbackConfigURL string, masterMnemonic []string,
	cipher *privacy.FieldCipher, log *zap.Logger) (*Client, error) {

	c := &Client{cipher: cipher, network: network, log: log}

	primary, err := connect(ctx, "primary", primaryConfigURL)
	if err != nil {
		return nil, fmt.Errorf("chain: connect primary: %w", err)
	}
	c.endpoints = append(c.endpoints, primary)

	if fallbackConfigURL != "" {
		fallback, err := connect(ctx, "fallback", fallbackConfigURL)
		if err != nil {
			return nil, fmt.Errorf("chain: connect fallback: %w", err)
		}
		c.endpoints = append(c.endpoints, fallback)
	}

	if len(masterMnemonic) > 0 {
		w, err := wallet.FromSeed(c.endpoints[0].api, masterMnemonic, wallet.V4R2)
		if err != nil {
			return nil, fmt.Errorf("chain: derive master wallet: %w", err)
		}
		c.masterW = w
	}

	return c, nil
}

func connect(ctx context.Context, name, configURL string) (*endpoint, error) {
	pool := liteclient.NewConnectionPool()
	if err := pool.AddConnectionsFromConfigUrl(ctx, configURL); err != nil {
		return nil, err
	}
	return &endpoint{name: name, pool: pool, api: ton.NewAPIClient(pool)}, nil
}

// HasMasterWallet reports whether the privacy relay's second hop is
// available. When false, the saga coordinator falls back to a direct
// single-hop transfer (acceptable for dev, not production).
func (c *Client) HasMasterWallet() bool {
	return c.masterW != nil
}

// MasterAddress returns the master wallet's address and true, or ("",
// false) when no master wallet is configured.
func (c *Client) MasterAddress() (string, bool) {
	if c.masterW == nil {
		return "", false
	}
	return c.masterW.Address().String(), true
}

// GeneratedWallet is the result of GenerateWallet: a fresh keypair/address
// plus its mnemonic, already sealed with the field cipher so callers never
// hold plaintext key material past this call.
type GeneratedWallet struct {
	Address           string
	EncryptedMnemonic string
}

// GenerateWallet produces a fresh per-deal escrow wallet. The mnemonic is
// encrypted immediately — only the ciphertext form is ever persisted.
func (c *Client) GenerateWallet(ctx context.Context) (*GeneratedWallet, error) {
	words := wallet.NewSeed()
	w, err := wallet.FromSeed(c.endpoints[0].api, words, wallet.V4R2)
	if err != nil {
		return nil, fmt.Errorf("chain: generate wallet: %w", err)
	}

	mnemonic := joinWords(words)
	encrypted, err := c.cipher.Encrypt(mnemonic)
	if err != nil {
		return nil, fmt.Errorf("chain: encrypt mnemonic: %w", err)
	}

	return &GeneratedWallet{
		Address:           w.Address().String(),
		EncryptedMnemonic: encrypted,
	}, nil
}

// GetBalance returns the address's balance in nanounits, retried across
// endpoints on transient RPC failure.
func (c *Client) GetBalance(ctx context.Context, addr string) (int64, error) {
	var balance int64
	err := c.withRetry(ctx, "get_balance", func(ctx context.Context, ep *endpoint) error {
		block, err := ep.api.GetMasterchainInfo(ctx)
		if err != nil {
			return err
		}
		acc, err := ep.api.GetAccount(ctx, block, mustParseAddress(addr))
		if err != nil {
			return err
		}
		if !acc.IsActive {
			balance = 0
			return nil
		}
		balance = acc.State.Balance.Nano().Int64()
		return nil
	})
	return balance, err
}

// TransferFunds decrypts the escrow wallet's mnemonic, derives the wallet,
// and sends amountNano to toAddress, polling until the wallet's seqno
// advances past the submitted value. Returning before confirmation is
// forbidden — callers treat this as durable once it returns.
func (c *Client) TransferFunds(ctx context.Context, encryptedMnemonic, toAddress string, amountNano int64) (string, error) {
	plainMnemonic, err := c.cipher.Decrypt(encryptedMnemonic)
	if err != nil {
		return "", fmt.Errorf("chain: decrypt escrow mnemonic: %w", err)
	}

	var txID string
	err = c.withRetry(ctx, "transfer_funds", func(ctx context.Context, ep *endpoint) error {
		w, err := wallet.FromSeed(ep.api, splitWords(plainMnemonic), wallet.V4R2)
		if err != nil {
			return err
		}
		id, err := sendAndConfirm(ctx, ep.api, w, toAddress, amountNano)
		if err != nil {
			return err
		}
		txID = id
		return nil
	})
	return txID, err
}

// TransferFromMaster is TransferFunds' counterpart for the saga's second
// hop: it spends from the process-wide master wallet instead of a
// per-deal escrow key.
func (c *Client) TransferFromMaster(ctx context.Context, toAddress string, amountNano int64) (string, error) {
	if c.masterW == nil {
		return "", fmt.Errorf("chain: transfer from master: no master wallet configured")
	}

	var txID string
	err := c.withRetry(ctx, "transfer_from_master", func(ctx context.Context, ep *endpoint) error {
		id, err := sendAndConfirm(ctx, ep.api, c.masterW, toAddress, amountNano)
		if err != nil {
			return err
		}
		txID = id
		return nil
	})
	return txID, err
}

// withRetry wraps a chain call with up to maxAttempts attempts, switching
// to the fallback endpoint once attempts reach ceil(len(endpoints)/2), and
// exponential backoff (1s * 2^attempt) between tries. Per-endpoint failure
// counts are kept for observability.
func (c *Client) withRetry(ctx context.Context, op string, fn func(ctx context.Context, ep *endpoint) error) error {
	switchAt := (len(c.endpoints) + 1) / 2
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		epIdx := 0
		if len(c.endpoints) > 1 && attempt >= switchAt {
			epIdx = 1
		}
		ep := c.endpoints[epIdx]

		err := fn(ctx, ep)
		if err == nil {
			return nil
		}

		ep.failure++
		lastErr = err
		c.log.Warn("chain: rpc call failed",
			zap.String("op", op), zap.String("endpoint", ep.name),
			zap.Int("attempt", attempt+1), zap.Error(err))

		if attempt < maxAttempts-1 {
			backoff := jitter(time.Duration(1<<uint(attempt)) * time.Second)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return fmt.Errorf("chain: %s failed after %d attempts: %w", op, maxAttempts, lastErr)
}

// sendAndConfirm submits a transfer and blocks until the wallet's seqno
// advances past the pre-submission value, or ErrConfirmationTimeout fires.
func sendAndConfirm(ctx context.Context, api ton.APIClientWrapped, w *wallet.Wallet, toAddress string, amountNano int64) (string, error) {
	block, err := api.GetMasterchainInfo(ctx)
	if err != nil {
		return "", err
	}
	startSeqno, err := w.GetSeqno(ctx, block)
	if err != nil {
		return "", err
	}

	msg, err := w.BuildTransfer(mustParseAddress(toAddress), nanoToCoins(amountNano), false, "")
	if err != nil {
		return "", err
	}
	if err := w.Send(ctx, msg); err != nil {
		return "", err
	}
	txID := fmt.Sprintf("%s:%d", w.Address().String(), startSeqno+1)

	deadline := time.Now().Add(confirmDeadline)
	for {
		if time.Now().After(deadline) {
			return "", ErrConfirmationTimeout
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(confirmPollInterval):
		}

		curBlock, err := api.GetMasterchainInfo(ctx)
		if err != nil {
			continue // transient read, keep polling until deadline
		}
		seqno, err := w.GetSeqno(ctx, curBlock)
		if err != nil {
			continue
		}
		if seqno > startSeqno {
			return txID, nil
		}
	}
}

func joinWords(words []string) string {
	s := ""
	for i, w := range words {
		if i > 0 {
			s += " "
		}
		s += w
	}
	return s
}

func splitWords(mnemonic string) []string {
	var words []string
	cur := ""
	for _, r := range mnemonic {
		if r == ' ' {
			if cur != "" {
				words = append(words, cur)
				cur = ""
			}
			continue
		}
		cur += string(r)
	}
	if cur != "" {
		words = append(words, cur)
	}
	return words
}

// jitter nudges backoff slightly so many concurrently-retrying sagas don't
// all hammer the fallback endpoint in lockstep. The result lies in
// [d, d+d/4): never below d and at most 25% above it.
func jitter(d time.Duration) time.Duration {
	n := rand.Int63n(int64(d) / 4)
	return d + time.Duration(n)
}
