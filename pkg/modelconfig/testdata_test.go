package modelconfig

import (
	"github.com/Meesho/BharatMLStack/predator-core/pkg/datatype"
)

func imageModelConfig() ModelConfig {
	return ModelConfig{
		Name:         "resnet",
		Version:      1,
		MaxBatchSize: 8,
		Input: []ModelInput{
			{Name: "image", DataType: datatype.DataTypeFP32, Dims: DimsList{3, 224, 224}},
		},
		Output: []ModelOutput{
			{Name: "probs", DataType: datatype.DataTypeFP32, Dims: DimsList{1000}},
		},
	}
}
