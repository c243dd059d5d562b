package kafka

import (
	"fmt"
	"strings"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/mohammed-shakir/h3-columnar/internal/ops"
)

// Message headers. A job carries HeaderOp, optional HeaderJobID and one
// HeaderParamPrefix+name header per op param; its value is an Arrow IPC
// payload. Results echo HeaderJobID and HeaderOp and add HeaderStatus.
const (
	HeaderOp          = "op"
	HeaderJobID       = "job-id"
	HeaderParamPrefix = "param."
	HeaderStatus      = "status"
	HeaderError       = "error"
)

const (
	StatusOK        = "ok"
	StatusUserError = "user_error"
	StatusError     = "error"
)

type Job struct {
	ID     string
	Op     string
	Params ops.Params
	Body   []byte
}

func decodeJob(msg *sarama.ConsumerMessage) (Job, error) {
	j := Job{Params: ops.Params{}, Body: msg.Value}
	for _, h := range msg.Headers {
		if h == nil {
			continue
		}
		k := string(h.Key)
		switch {
		case k == HeaderOp:
			j.Op = strings.TrimSpace(string(h.Value))
		case k == HeaderJobID:
			j.ID = strings.TrimSpace(string(h.Value))
		case strings.HasPrefix(k, HeaderParamPrefix):
			name := strings.TrimPrefix(k, HeaderParamPrefix)
			if name != "" {
				j.Params[name] = string(h.Value)
			}
		}
	}
	if j.Op == "" {
		return j, fmt.Errorf("job at %s/%d/%d: missing %q header", msg.Topic, msg.Partition, msg.Offset, HeaderOp)
	}
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	return j, nil
}

// Result is one published answer to a Job.
type Result struct {
	JobID  string
	Op     string
	Status string
	Err    string
	Body   []byte
}

func (r Result) message(topic string) *sarama.ProducerMessage {
	hs := []sarama.RecordHeader{
		{Key: []byte(HeaderJobID), Value: []byte(r.JobID)},
		{Key: []byte(HeaderOp), Value: []byte(r.Op)},
		{Key: []byte(HeaderStatus), Value: []byte(r.Status)},
	}
	if r.Err != "" {
		hs = append(hs, sarama.RecordHeader{Key: []byte(HeaderError), Value: []byte(r.Err)})
	}
	var val sarama.Encoder
	if r.Body != nil {
		val = sarama.ByteEncoder(r.Body)
	}
	return &sarama.ProducerMessage{
		Topic:   topic,
		Key:     sarama.StringEncoder(r.JobID),
		Value:   val,
		Headers: hs,
	}
}
