package storage

import "balancerScope/internal/model"

// Storage defines a sink for raw vault log records.
type Storage interface {
	PutLogBatch(logs []model.LogRecord) error
}

// RecordWriter appends arbitrary JSON records, one per line.
type RecordWriter interface {
	Write(value interface{}) error
	Close() error
}
