package delivery

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rah-ai/financial-daily-summary/pkg/fault"
)

// Writer renders briefings to an io.Writer instead of a chat. Used for dry
// runs.
type Writer struct {
	W io.Writer
}

func (w *Writer) Deliver(ctx context.Context, bundle Bundle) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parts := Split(Format(bundle), maxMessageChars)
	receipt := &Receipt{Channel: "writer"}

	for i, part := range parts {
		if _, err := fmt.Fprintln(w.W, part); err != nil {
			return nil, fault.Fatal(fmt.Errorf("write briefing: %w", err))
		}
		receipt.MessageIDs = append(receipt.MessageIDs, int64(i+1))
	}
	for _, ref := range bundle.Charts {
		if receipt.ChartsSent == maxPhotos {
			break
		}
		fmt.Fprintf(w.W, "[chart] %s: %s\n", ref.Title, ref.URL)
		receipt.ChartsSent++
	}

	receipt.DeliveredAt = time.Now()
	return receipt, nil
}

func (w *Writer) Notify(ctx context.Context, text string) error {
	_, err := fmt.Fprintln(w.W, text)
	return err
}
