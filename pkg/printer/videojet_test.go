package printer

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vincentbui21/SmartJuiceSystem/pkg/config"
	pkgerrors "github.com/vincentbui21/SmartJuiceSystem/pkg/errors"
)

func testPrinterConfig() config.PrinterConfig {
	return config.PrinterConfig{Host: "printer.local", JobPort: 3003, TestPort: 3001, JobName: "POUCH_LABEL", DialTimeout: time.Second}
}

func captureDial(buf *strings.Builder) func(context.Context, string) (net.Conn, error) {
	return func(ctx context.Context, addr string) (net.Conn, error) {
		server, client := net.Pipe()
		go func() {
			defer server.Close()
			chunk := make([]byte, 1024)
			for {
				n, err := server.Read(chunk)
				if n > 0 {
					buf.Write(chunk[:n])
				}
				if err != nil {
					return
				}
			}
		}()
		return client, nil
	}
}

func TestPrintPouchLabelWritesJob(t *testing.T) {
	var wire strings.Builder
	client := NewClient(testPrinterConfig(), nil)
	client.dial = captureDial(&wire)

	err := client.PrintPouchLabel(context.Background(), Label{
		FirstName: "Maija",
		LastName:  "Virtanen",
		Date:      time.Date(2025, 10, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	got := wire.String()
	require.Contains(t, got, "SLA|POUCH_LABEL|")
	require.Contains(t, got, "VarField01=Virtanen|")
	require.Contains(t, got, "VarField02=Maija|")
	require.Contains(t, got, "VarField03=02.10.2025|")
	require.Contains(t, got, "PRN|")
}

func TestPrintPouchLabelSanitizesDelimiters(t *testing.T) {
	var wire strings.Builder
	client := NewClient(testPrinterConfig(), nil)
	client.dial = captureDial(&wire)

	err := client.PrintPouchLabel(context.Background(), Label{LastName: "Vir|tanen"})
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	require.Contains(t, wire.String(), "VarField01=Vir tanen|")
}

func TestTestConnectionUsesTestPort(t *testing.T) {
	var addrs []string
	var wire strings.Builder
	client := NewClient(testPrinterConfig(), nil)
	inner := captureDial(&wire)
	client.dial = func(ctx context.Context, addr string) (net.Conn, error) {
		addrs = append(addrs, addr)
		return inner(ctx, addr)
	}

	require.NoError(t, client.TestConnection(context.Background()))
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, []string{"printer.local:3001"}, addrs)
	require.Contains(t, wire.String(), "TPR|POUCH_LABEL|")
}

func TestMissingHostReportsDependency(t *testing.T) {
	client := NewClient(config.PrinterConfig{}, nil)
	err := client.TestConnection(context.Background())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeDependency, typed.Code())
}
