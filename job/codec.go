package job

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pyxol/protostar"
)

// wireRecord is the queued representation of a Record. Delay is not
// written: the broker turns it into a sorted-set score at enqueue time.
type wireRecord struct {
	Cargo     any   `json:"cargo"`
	Tries     int   `json:"tries"`
	MaxTries  int   `json:"max_tries"`
	Timestamp int64 `json:"timestamp"`
}

// incomingRecord accepts older payloads that still carry a delay.
type incomingRecord struct {
	Cargo     json.RawMessage `json:"cargo"`
	Tries     *int            `json:"tries"`
	MaxTries  *int            `json:"max_tries"`
	Timestamp *int64          `json:"timestamp"`
	Delay     *int            `json:"delay"`
}

// Encode serializes the record into its wire form.
func (r *Record) Encode() ([]byte, error) {
	b, err := json.Marshal(wireRecord{
		Cargo:     r.Cargo,
		Tries:     r.Tries,
		MaxTries:  r.MaxTries,
		Timestamp: r.Timestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", protostar.ErrEncoding, err)
	}
	return b, nil
}

// Decode reconstructs a consumer-side record from wire data. Any defect in
// the payload is a hard error of type *protostar.MalformedJobError.
func Decode(queue string, data []byte) (*Record, error) {
	malformed := func(err error) error {
		return &protostar.MalformedJobError{Queue: queue, Raw: string(data), Err: err}
	}

	if queue == "" {
		return nil, protostar.ErrMissingQueueName
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, malformed(errors.New("empty payload"))
	}

	var in incomingRecord
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, malformed(err)
	}
	if len(in.Cargo) == 0 || bytes.Equal(bytes.TrimSpace(in.Cargo), []byte("null")) {
		return nil, malformed(protostar.ErrMissingCargo)
	}

	r := &Record{
		Queue:    queue,
		Cargo:    in.Cargo,
		MaxTries: DefaultMaxTries,
	}
	if in.Tries != nil {
		if *in.Tries < 0 {
			return nil, malformed(fmt.Errorf("negative tries %d", *in.Tries))
		}
		r.Tries = *in.Tries
	}
	if in.MaxTries != nil {
		if *in.MaxTries < 1 {
			return nil, malformed(protostar.ErrInvalidMaxTries)
		}
		r.MaxTries = *in.MaxTries
	}
	if in.Timestamp != nil {
		r.Timestamp = *in.Timestamp
	} else {
		r.Timestamp = time.Now().Unix()
	}
	if in.Delay != nil && *in.Delay > 0 {
		r.Delay = *in.Delay
	}
	return r, nil
}

// CargoJSON returns the cargo in its JSON form.
func (r *Record) CargoJSON() (json.RawMessage, error) {
	switch c := r.Cargo.(type) {
	case json.RawMessage:
		return c, nil
	case nil:
		return nil, protostar.ErrMissingCargo
	}
	b, err := json.Marshal(r.Cargo)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", protostar.ErrEncoding, err)
	}
	return b, nil
}
