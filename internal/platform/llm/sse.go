package llm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrStreamEnd is returned by an onEvent callback that has seen its
// provider's terminal event. ReadSSE then returns nil.
var ErrStreamEnd = errors.New("sse: end of stream")

// ReadSSE calls onEvent once per server-sent event. A "[DONE]" data payload
// or a callback returning ErrStreamEnd ends the stream without error. A body
// that ends before either is truncated and yields io.ErrUnexpectedEOF.
func ReadSSE(r io.Reader, onEvent func(event, data string) error) error {
	br := bufio.NewReader(r)
	var (
		eventName string
		dataLines []string
	)

	flush := func() error {
		if len(dataLines) == 0 {
			eventName = ""
			return nil
		}
		data := strings.Join(dataLines, "\n")
		dataLines = nil
		ev := eventName
		eventName = ""
		if data == "[DONE]" {
			return ErrStreamEnd
		}
		return onEvent(ev, data)
	}

	for {
		line, err := br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				if line = strings.TrimRight(line, "\r\n"); strings.HasPrefix(line, "data:") {
					dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
				}
				if ferr := flush(); ferr != nil {
					if errors.Is(ferr, ErrStreamEnd) {
						return nil
					}
					return ferr
				}
				return fmt.Errorf("sse: stream ended without terminator: %w", io.ErrUnexpectedEOF)
			}
			return err
		}
		line = strings.TrimRight(line, "\r\n")

		if line == "" {
			if err := flush(); err != nil {
				if errors.Is(err, ErrStreamEnd) {
					return nil
				}
				return err
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "event:") {
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		}
		if strings.HasPrefix(line, "data:") {
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
}
