package modelconfig

import (
	"github.com/Meesho/BharatMLStack/predator-core/pkg/datatype"
)

type ModelRepository struct {
	Models []ModelConfig `json:"models"`
}

type ModelConfig struct {
	Name         string          `json:"name"`
	Version      int64           `json:"version"`
	Platform     string          `json:"platform,omitempty"`
	Backend      string          `json:"backend,omitempty"`
	MaxBatchSize int32           `json:"max_batch_size"`
	Input        []ModelInput    `json:"input"`
	Output       []ModelOutput   `json:"output"`
	ModelWarmup  []WarmupSetting `json:"model_warmup,omitempty"`
}

type ModelInput struct {
	Name     string              `json:"name"`
	DataType datatype.DataType   `json:"data_type"`
	Dims     DimsList            `json:"dims"`
	Reshape  *ModelTensorReshape `json:"reshape,omitempty"`
	Optional bool                `json:"optional,omitempty"`
}

type ModelOutput struct {
	Name          string              `json:"name"`
	DataType      datatype.DataType   `json:"data_type"`
	Dims          DimsList            `json:"dims"`
	Reshape       *ModelTensorReshape `json:"reshape,omitempty"`
	LabelFilename string              `json:"label_filename,omitempty"`
}

type ModelTensorReshape struct {
	Shape DimsList `json:"shape"`
}

// WarmupSetting describes one synthetic request sent to a model before it
// serves traffic. Count is the number of times the same request object is
// prepared and drained.
type WarmupSetting struct {
	Name      string                 `json:"name"`
	BatchSize uint32                 `json:"batch_size"`
	Count     uint32                 `json:"count"`
	Inputs    map[string]WarmupInput `json:"inputs"`
}

type WarmupInput struct {
	DataType   datatype.DataType `json:"data_type"`
	Dims       DimsList          `json:"dims"`
	ZeroData   bool              `json:"zero_data,omitempty"`
	RandomData bool              `json:"random_data,omitempty"`
}
