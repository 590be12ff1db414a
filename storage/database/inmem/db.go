// Package inmemdb is a process-local document store, used in DEV and tests.
package inmemdb

import (
	"sync"

	"github.com/Kingsman71/Binary-Learning/core/application"
	"github.com/Kingsman71/Binary-Learning/core/student"
)

type (
	DB struct {
		application *applicationTable
		student     *studentTable
	}

	applicationTable struct {
		sync.RWMutex
		table map[string]*application.Application
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student
	}
)

func Open() *DB {
	db := &DB{
		application: &applicationTable{},
		student:     &studentTable{},
	}
	db.Reset()
	return db
}

// Reset drops every document.
func (db *DB) Reset() {
	db.application.Lock()
	db.application.table = make(map[string]*application.Application)
	db.application.Unlock()

	db.student.Lock()
	db.student.table = make(map[string]*student.Student)
	db.student.Unlock()
}

func (db *DB) Close() error { return nil }
