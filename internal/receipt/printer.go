package receipt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Printer puts a rendered document on paper. Printing is irreversible: once
// Print returns nil the customer may already hold the receipt.
type Printer interface {
	Print(ctx context.Context, doc Document) error
}

// WriterPrinter writes documents to an io.Writer such as a raw printer
// device or stdout.
type WriterPrinter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterPrinter creates a printer writing to w.
func NewWriterPrinter(w io.Writer) *WriterPrinter {
	return &WriterPrinter{w: w}
}

// OpenDevicePrinter opens a printer device or spool file for appending.
func OpenDevicePrinter(path string) (*WriterPrinter, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open printer %s: %w", path, err)
	}
	return NewWriterPrinter(f), f, nil
}

func (p *WriterPrinter) Print(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := io.WriteString(p.w, doc.Body+"\n\n\n"); err != nil {
		return fmt.Errorf("write receipt %s: %w", doc.ReceiptNumber, err)
	}
	return nil
}

// Publisher is the subset of *amqp.Channel the AMQP printer uses.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPPrinter hands documents to a print station over a durable queue.
type AMQPPrinter struct {
	pub   Publisher
	queue string
}

// NewAMQPPrinter creates a printer publishing to queue on the default
// exchange.
func NewAMQPPrinter(pub Publisher, queue string) *AMQPPrinter {
	return &AMQPPrinter{pub: pub, queue: queue}
}

func (p *AMQPPrinter) Print(ctx context.Context, doc Document) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode receipt %s: %w", doc.ReceiptNumber, err)
	}
	err = p.pub.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		ContentType:  "application/json",
		MessageId:    doc.Kind + ":" + doc.ReceiptNumber,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish receipt %s: %w", doc.ReceiptNumber, err)
	}
	return nil
}

// PrintQueue is an open connection to the print station's broker.
type PrintQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// DialPrintQueue connects to the broker and declares the durable queue.
func DialPrintQueue(url, queue string) (*PrintQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial print queue: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &PrintQueue{conn: conn, ch: ch}, nil
}

// Channel returns the channel to publish on.
func (q *PrintQueue) Channel() *amqp.Channel {
	return q.ch
}

func (q *PrintQueue) Close() error {
	if q == nil {
		return nil
	}
	if q.ch != nil {
		q.ch.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
