// pkg/response/response.go
package response

import (
	"fmt"

	"github.com/justrach/turboAPI/pkg/codec"
)

// Response is the canonical terminal form of a handler outcome. It is
// consumed once by the connection writer.
type Response struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

// Pair is the unambiguous (content, status) carrier. Handlers that return a
// two-element []any with an int second element get the same treatment by
// positional rule; handlers that mean a literal two-element list should wrap
// it (e.g. return it under a key) or return Pair explicitly.
type Pair struct {
	Content any
	Status  int
}

// With builds a (content, status) pair.
func With(content any, status int) Pair { return Pair{Content: content, Status: status} }

// Normalize maps a handler's raw return value into a Response. Priority:
// a Pair (or positional two-element sequence), then plain serialization
// with status 200, then nil as an empty body.
func Normalize(v any) (Response, error) {
	status := 200

	if p, ok := v.(Pair); ok {
		v, status = p.Content, p.Status
	} else if seq, ok := v.([]any); ok && len(seq) == 2 {
		if st, ok := seq[1].(int); ok {
			v, status = seq[0], st
		}
	}

	if status < 100 || status > 599 {
		return Response{}, fmt.Errorf("response: status %d out of range", status)
	}

	body, err := serialize(v)
	if err != nil {
		return Response{}, err
	}
	return Response{
		Status:  status,
		Headers: map[string]string{"Content-Type": codec.JSONStrict.ContentType()},
		Body:    body,
	}, nil
}

func serialize(v any) ([]byte, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	default:
		b, err := codec.JSONStrict.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("response: serialize: %w", err)
		}
		return b, nil
	}
}
