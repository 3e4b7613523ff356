package modelconfig

import (
	"github.com/stretchr/testify/mock"
)

type MockManager struct {
	mock.Mock
}

func (m *MockManager) GetModel(name string, version int64) (*Model, error) {
	args := m.Called(name, version)
	model, _ := args.Get(0).(*Model)
	return model, args.Error(1)
}

func (m *MockManager) GetAllModels() []*Model {
	args := m.Called()
	models, _ := args.Get(0).([]*Model)
	return models
}
