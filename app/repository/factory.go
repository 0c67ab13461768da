package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory builds the repository set once, either on a gorm handle or in memory.
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a factory backed by db. A nil db yields in-memory
// repositories.
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		if f.db == nil {
			f.repos = NewMemoryRepositories()
			return
		}
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

func (f *Factory) GetAccessRepository() AccessRepository {
	return f.GetRepositories().Access
}

func (f *Factory) GetPaymentRepository() PaymentRepository {
	return f.GetRepositories().Payment
}

// NewRepositories creates gorm-backed repositories.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Access:  NewAccessRepository(db),
		Payment: NewPaymentRepository(db),
	}
}

// NewMemoryRepositories creates process-local repositories for development
// and tests.
func NewMemoryRepositories() *Repositories {
	return &Repositories{
		Access:  NewMemoryAccessRepository(),
		Payment: NewMemoryPaymentRepository(),
	}
}
