package forensics

import (
	"encoding/json"
	"os"
	"sync"
)

// ForensicLogger appends one JSON document per line.
type ForensicLogger struct {
	mu   sync.Mutex
	file *os.File
	path string
}

func NewForensicLogger(path string) (*ForensicLogger, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	return &ForensicLogger{
		file: file,
		path: path,
	}, nil
}

func (fl *ForensicLogger) Log(entry interface{}) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	data = append(data, '\n')
	fl.mu.Lock()
	defer fl.mu.Unlock()
	_, err = fl.file.Write(data)
	return err
}

func (fl *ForensicLogger) Close() error {
	return fl.file.Close()
}
