package memory

import (
	"alcyxob/training-planner/internal/repository"
	"alcyxob/training-planner/internal/repository/repotest"
	"testing"
)

func TestStoreContract(t *testing.T) {
	repotest.Run(t, func(t *testing.T) repository.Store {
		return NewStore()
	})
}
