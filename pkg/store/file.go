package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type accountsFile struct {
	Accounts map[string]Record `json:"accounts"`
}

// FileStore keeps account records in a single JSON file. Writes go through a
// temp file plus rename so readers never observe a partial file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by the given path. The file is created
// on first write.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) load() (*accountsFile, error) {
	content, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &accountsFile{Accounts: map[string]Record{}}, nil
		}
		return nil, err
	}
	var file accountsFile
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to parse account store: %w", err)
	}
	if file.Accounts == nil {
		file.Accounts = map[string]Record{}
	}
	return &file, nil
}

func (s *FileStore) save(file *accountsFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create account store dir: %w", err)
	}
	content, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal account store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o600); err != nil {
		return fmt.Errorf("failed to write account store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace account store: %w", err)
	}
	return nil
}

func (s *FileStore) List() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := s.load()
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(file.Accounts))
	for _, record := range file.Accounts {
		records = append(records, record)
	}
	return records, nil
}

func (s *FileStore) Get(id string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := s.load()
	if err != nil {
		return Record{}, false, err
	}
	record, ok := file.Accounts[id]
	return record, ok, nil
}

func (s *FileStore) Put(record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := s.load()
	if err != nil {
		return err
	}
	file.Accounts[record.ID] = record
	return s.save(file)
}

func (s *FileStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	file, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := file.Accounts[id]; !ok {
		return nil
	}
	delete(file.Accounts, id)
	return s.save(file)
}
