package cloverly

import (
	"github.com/bytedance/sonic"
)

var jsonHandler = sonic.Config{
	UseNumber:  true,
	EscapeHTML: true,
}.Froze()

func fastJSONMarshal(v interface{}) ([]byte, error) {
	return jsonHandler.Marshal(v)
}

func fastJSONUnmarshal(data []byte, v interface{}) error {
	return jsonHandler.Unmarshal(data, v)
}
