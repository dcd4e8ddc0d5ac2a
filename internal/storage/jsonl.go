package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"launchkit/internal/model"
)

// JsonlSink appends audit records to a JSONL file.
type JsonlSink struct {
	path string
	mu   sync.Mutex
}

func NewJsonlSink(path string) *JsonlSink {
	return &JsonlSink{path: path}
}

type auditLine struct {
	Kind   string `json:"kind"`
	Record any    `json:"record"`
}

func (s *JsonlSink) PutLaunch(_ context.Context, record model.LaunchRecord) error {
	return s.append(auditLine{Kind: "launch", Record: record})
}

func (s *JsonlSink) PutRegistration(_ context.Context, record model.CreatorRegistration) error {
	return s.append(auditLine{Kind: "creator_registered", Record: record})
}

func (s *JsonlSink) PutPendingSettlement(_ context.Context, record model.PendingSettlement) error {
	return s.append(auditLine{Kind: "settlement_pending", Record: record})
}

func (s *JsonlSink) PutFeeCollection(_ context.Context, record model.FeeCollectionRecord) error {
	return s.append(auditLine{Kind: "fees_collected", Record: record})
}

func (s *JsonlSink) append(line auditLine) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	payload, err := json.Marshal(line)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	if _, err := writer.Write(payload); err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	if err := writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}
