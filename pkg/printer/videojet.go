// Package printer drives the Videojet 6330 label printer used on the pouch
// line. The printer speaks a plain pipe-delimited line protocol over TCP:
// one port accepts print jobs, another answers connectivity test commands.
package printer

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/config"
	pkgerrors "github.com/vincentbui21/SmartJuiceSystem/pkg/errors"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/logger"
)

// Label is the variable data rendered on one pouch label.
type Label struct {
	FirstName string
	LastName  string
	Date      time.Time
}

// Client sends jobs to the configured printer.
type Client struct {
	cfg    config.PrinterConfig
	logger *logger.Logger

	// dial is swappable in tests
	dial func(ctx context.Context, addr string) (net.Conn, error)
}

// NewClient builds a printer client. The printer host may be empty, in which
// case every call reports a dependency error.
func NewClient(cfg config.PrinterConfig, logg *logger.Logger) *Client {
	c := &Client{cfg: cfg, logger: logg}
	c.dial = func(ctx context.Context, addr string) (net.Conn, error) {
		d := net.Dialer{Timeout: c.dialTimeout()}
		return d.DialContext(ctx, "tcp", addr)
	}
	return c
}

func (c *Client) dialTimeout() time.Duration {
	if c.cfg.DialTimeout > 0 {
		return c.cfg.DialTimeout
	}
	return 5 * time.Second
}

// PrintPouchLabel loads the label job, fills the variable fields and fires
// one print.
func (c *Client) PrintPouchLabel(ctx context.Context, label Label) error {
	if strings.TrimSpace(label.LastName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "label last name required")
	}
	date := label.Date
	if date.IsZero() {
		date = time.Now()
	}

	commands := []string{
		fmt.Sprintf("SLA|%s|", c.cfg.JobName),
		fmt.Sprintf("VarField01=%s|", sanitizeField(label.LastName)),
		fmt.Sprintf("VarField02=%s|", sanitizeField(label.FirstName)),
		fmt.Sprintf("VarField03=%s|", date.Format("02.01.2006")),
		"PRN|",
	}
	return c.send(ctx, c.cfg.JobPort, commands)
}

// TestConnection asks the printer to acknowledge the configured job.
func (c *Client) TestConnection(ctx context.Context) error {
	return c.send(ctx, c.cfg.TestPort, []string{fmt.Sprintf("TPR|%s|", c.cfg.JobName)})
}

func (c *Client) send(ctx context.Context, port int, commands []string) error {
	host := strings.TrimSpace(c.cfg.Host)
	if host == "" {
		return pkgerrors.New(pkgerrors.CodeDependency, "printer host not configured")
	}

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	conn, err := c.dial(ctx, addr)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "printer unreachable")
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(c.dialTimeout()))
	}

	payload := strings.Join(commands, "\r\n") + "\r\n"
	if _, err := conn.Write([]byte(payload)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "printer write failed")
	}

	if c.logger != nil {
		logCtx := c.logger.WithFields(ctx, map[string]any{"printer_addr": addr, "commands": len(commands)})
		c.logger.Info(logCtx, "printer.job_sent")
	}
	return nil
}

// sanitizeField strips protocol delimiters from user-entered names.
func sanitizeField(value string) string {
	cleaned := strings.NewReplacer("|", " ", "\r", " ", "\n", " ").Replace(value)
	return strings.TrimSpace(cleaned)
}
