package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedBus "github.com/davicafu/tallerlab/internal/shared/infra/platform/bus"
)

// kafkaReader es lo que KafkaSource necesita de kafka.Reader; la interfaz
// permite sustituirlo en tests.
type kafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSource adapta un kafka.Reader a la semántica de cola del
// consumidor: FetchMessage sin auto-commit, y el commit explícito del
// offset hace de ack.
//
// El reader nunca rebobina en sesión y CommitMessages confirma TODOS los
// offsets de la partición hasta el mensaje dado, así que la reentrega de
// un mensaje fallido no puede delegarse en el broker mientras el proceso
// viva. KafkaSource retiene los mensajes entregados sin ack en un buffer
// y los vuelve a entregar en el siguiente Receive; el offset confirmado
// solo avanza sobre el prefijo de éxitos.
type KafkaSource struct {
	reader kafkaReader
	wait   time.Duration
	log    *zap.Logger

	mu      sync.Mutex
	pending []kafka.Message // entregados sin ack, en orden de fetch
}

func NewKafkaSource(reader *kafka.Reader, wait time.Duration, log *zap.Logger) *KafkaSource {
	return &KafkaSource{reader: reader, wait: wait, log: log}
}

// Receive reentrega primero lo pendiente de ack y rellena el resto del
// batch con long-poll acotado contra el broker. El reader nunca rebobina,
// así que lo que devuelve FetchMessage es siempre posterior a lo
// pendiente: no hay duplicados en el batch.
func (s *KafkaSource) Receive(ctx context.Context, max int) ([]sharedBus.Message, error) {
	s.mu.Lock()
	head := make([]kafka.Message, len(s.pending))
	copy(head, s.pending)
	s.mu.Unlock()

	if len(head) >= max {
		return toBusMessages(head[:max]), nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.wait)
	defer cancel()

	var fetched []kafka.Message
	for len(head)+len(fetched) < max {
		m, err := s.reader.FetchMessage(waitCtx)
		if err != nil {
			// Ventana agotada: batch parcial, no es un error.
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				break
			}
			if len(head)+len(fetched) > 0 {
				break
			}
			return nil, err
		}
		fetched = append(fetched, m)
	}

	s.mu.Lock()
	s.pending = append(s.pending, fetched...)
	s.mu.Unlock()

	return toBusMessages(append(head, fetched...)), nil
}

// Ack confirma el offset y descarta del buffer el mensaje junto con todo
// lo anterior de su partición: el commit ya los cubre.
func (s *KafkaSource) Ack(ctx context.Context, msg sharedBus.Message) error {
	m, ok := msg.Receipt.(kafka.Message)
	if !ok {
		return errors.New("message receipt is not a kafka message")
	}
	if err := s.reader.CommitMessages(ctx, m); err != nil {
		return err
	}

	s.mu.Lock()
	kept := s.pending[:0]
	for _, p := range s.pending {
		if p.Topic == m.Topic && p.Partition == m.Partition && p.Offset <= m.Offset {
			continue
		}
		kept = append(kept, p)
	}
	s.pending = kept
	s.mu.Unlock()
	return nil
}

func (s *KafkaSource) Close() error {
	return s.reader.Close()
}

func toBusMessages(msgs []kafka.Message) []sharedBus.Message {
	out := make([]sharedBus.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, sharedBus.Message{
			Key:     string(m.Key),
			Body:    m.Value,
			Receipt: m,
		})
	}
	return out
}

// Verificación estática
var _ sharedBus.MessageSource = (*KafkaSource)(nil)
