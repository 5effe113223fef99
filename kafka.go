package paygate

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/web3pay/paygate/schema"
)

const (
	OrderTopic = "paygate_order"
)

type OrderEvent struct {
	OrderId         string `json:"orderId"`
	Status          string `json:"status"`
	Reason          string `json:"reason"`
	TransactionHash string `json:"transactionHash,omitempty"`
	Timestamp       int64  `json:"timestamp"`
}

type KWriter struct {
	w *kafka.Writer
}

func NewKWriter(topic string, uri string) (*KWriter, error) {
	w := &kafka.Writer{
		Addr:     kafka.TCP(uri),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	return &KWriter{
		w: w,
	}, nil
}

func (kw *KWriter) Write(body []byte) error {
	err := kw.w.WriteMessages(
		context.Background(),
		kafka.Message{
			Value: body,
		},
	)
	return err
}

func (kw *KWriter) Close() {
	kw.w.Close()
}

// publishOrderEvent emits a status transition to the order topic. A nil
// writer disables the stream.
func (s *Paygate) publishOrderEvent(ord schema.Order, reason, txHash string) {
	if s.kWriter == nil {
		return
	}
	ev := OrderEvent{
		OrderId:         ord.ID,
		Status:          ord.Status,
		Reason:          reason,
		TransactionHash: txHash,
		Timestamp:       time.Now().Unix(),
	}
	by, err := json.Marshal(&ev)
	if err != nil {
		log.Error("marshal order event failed", "err", err, "orderId", ord.ID)
		return
	}
	if err := s.kWriter.Write(by); err != nil {
		log.Error("publish order event failed", "err", err, "orderId", ord.ID)
	}
}
