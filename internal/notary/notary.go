package notary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Operation names used for CLI subcommands and metric labels.
const (
	OpRegister = "register"
	OpBind     = "bind"
	OpNotarize = "notarize"
	OpProbe    = "probe"
)

// Error is a failed external invocation. Message carries the raw stderr text
// when the tool produced any, otherwise the runner error.
type Error struct {
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Config describes how the notarization CLI is invoked.
type Config struct {
	// Command is the argv prefix; subcommand and values are appended.
	Command []string
	// Probe is run by CheckAvailability.
	Probe   []string
	Workdir string
	// Timeout bounds each invocation when positive.
	Timeout time.Duration
}

// ParseConfig builds a Config from command lines as they appear in
// configuration.
func ParseConfig(command, probe, workdir string, timeout time.Duration) (Config, error) {
	argv, err := SplitCommand(command)
	if err != nil {
		return Config{}, fmt.Errorf("notary command: %w", err)
	}
	if len(argv) == 0 {
		return Config{}, errors.New("notary command is empty")
	}
	probeArgv, err := SplitCommand(probe)
	if err != nil {
		return Config{}, fmt.Errorf("notary probe: %w", err)
	}
	if len(probeArgv) == 0 {
		probeArgv = []string{argv[0], "--version"}
	}
	if strings.TrimSpace(workdir) == "" {
		workdir = "."
	}
	return Config{Command: argv, Probe: probeArgv, Workdir: workdir, Timeout: timeout}, nil
}

// TxResult is the outcome of a register or bind invocation.
type TxResult struct {
	TransactionHash string
	// HashParsed is false when TransactionHash was synthesized.
	HashParsed bool
	Timestamp  time.Time
}

// NotarizeResult is the outcome of a notarize invocation.
type NotarizeResult struct {
	TransactionHash     string
	HashParsed          bool
	BlockchainTimestamp time.Time
}

// VerifyResult reports whether a document hash is anchored on chain. Checked
// is false when the tool was not consulted.
type VerifyResult struct {
	Verified bool
	OnChain  bool
	Checked  bool
}

// QueryResult reports whether a DID is anchored on chain.
type QueryResult struct {
	Exists  bool
	OnChain bool
	Checked bool
}

// Client invokes the external notarization CLI.
type Client struct {
	runner  Runner
	cfg     Config
	log     *slog.Logger
	metrics *metrics
	now     func() time.Time
}

// New constructs a Client.
func New(runner Runner, cfg Config, log *slog.Logger) *Client {
	if runner == nil {
		runner = ExecRunner{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{runner: runner, cfg: cfg, log: log, metrics: defaultMetrics(), now: time.Now}
}

// RegisterDID anchors did on chain.
func (c *Client) RegisterDID(ctx context.Context, did string) (TxResult, error) {
	c.log.Info("registering did", "did", did)
	stdout, err := c.invoke(ctx, OpRegister, did)
	if err != nil {
		return TxResult{}, err
	}
	now := c.now()
	hash, parsed := extractTxHash(stdout, now)
	return TxResult{TransactionHash: hash, HashParsed: parsed, Timestamp: now.UTC()}, nil
}

// BindDIDToWallet links did to a wallet address on chain.
func (c *Client) BindDIDToWallet(ctx context.Context, did, wallet string) (TxResult, error) {
	c.log.Info("binding did to wallet", "did", did, "wallet", wallet)
	stdout, err := c.invoke(ctx, OpBind, did, wallet)
	if err != nil {
		return TxResult{}, err
	}
	now := c.now()
	hash, parsed := extractTxHash(stdout, now)
	return TxResult{TransactionHash: hash, HashParsed: parsed, Timestamp: now.UTC()}, nil
}

// NotarizeDocument anchors a document hash with its caller supplied
// timestamp.
func (c *Client) NotarizeDocument(ctx context.Context, hash string, timestamp int64) (NotarizeResult, error) {
	c.log.Info("notarizing document", "hash", hash)
	stdout, err := c.invoke(ctx, OpNotarize, hash, strconv.FormatInt(timestamp, 10))
	if err != nil {
		return NotarizeResult{}, err
	}
	now := c.now()
	txHash, parsed := extractTxHash(stdout, now)
	return NotarizeResult{TransactionHash: txHash, HashParsed: parsed, BlockchainTimestamp: now.UTC()}, nil
}

// VerifyDocument reports the document as anchored without consulting the
// CLI, which has no verify subcommand.
func (c *Client) VerifyDocument(_ context.Context, hash string) (VerifyResult, error) {
	c.log.Debug("verifying document", "hash", hash, "checked", false)
	return VerifyResult{Verified: true, OnChain: true, Checked: false}, nil
}

// QueryDID reports the DID as anchored without consulting the CLI, which
// has no query subcommand.
func (c *Client) QueryDID(_ context.Context, did string) (QueryResult, error) {
	c.log.Debug("querying did", "did", did, "checked", false)
	return QueryResult{Exists: true, OnChain: true, Checked: false}, nil
}

// CheckAvailability runs the probe command and reports whether it exited
// cleanly.
func (c *Client) CheckAvailability(ctx context.Context) bool {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	_, _, err := c.runner.Run(ctx, c.cfg.Workdir, c.cfg.Probe)
	c.metrics.observe(OpProbe, err == nil, time.Since(start))
	if err != nil {
		c.log.Debug("notary cli unavailable", "error", err)
		return false
	}
	return true
}

func (c *Client) invoke(ctx context.Context, op string, args ...string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	argv := make([]string, 0, len(c.cfg.Command)+1+len(args))
	argv = append(argv, c.cfg.Command...)
	argv = append(argv, op)
	argv = append(argv, args...)

	start := time.Now()
	stdout, stderr, err := c.runner.Run(ctx, c.cfg.Workdir, argv)
	elapsed := time.Since(start)

	if err != nil {
		message := strings.TrimSpace(stderr)
		if message == "" {
			message = err.Error()
		}
		c.metrics.observe(op, false, elapsed)
		c.log.Error("notary invocation failed", "operation", op, "error", message, "duration_ms", elapsed.Milliseconds())
		return "", &Error{Op: op, Message: message, Err: err}
	}
	if !benignStderr(stderr) {
		c.metrics.observe(op, false, elapsed)
		message := strings.TrimSpace(stderr)
		c.log.Error("notary invocation reported errors", "operation", op, "error", message, "duration_ms", elapsed.Milliseconds())
		return "", &Error{Op: op, Message: message}
	}
	c.metrics.observe(op, true, elapsed)
	c.log.Info("notary invocation completed", "operation", op, "duration_ms", elapsed.Milliseconds())
	return stdout, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, c.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}
