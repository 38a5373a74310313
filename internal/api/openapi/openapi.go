// Пакет openapi — контракты HTTP API сервисов.
// Документы встраиваются в бинарник и отдаются на /openapi.json.
package openapi

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed *.yaml
var specs embed.FS

// Имена встроенных документов.
const (
	ProvisioningSpec = "provisioning.yaml"
	NotifySpec       = "notify.yaml"
)

// Load загружает и валидирует встроенный OpenAPI-документ.
func Load(name string) (*openapi3.T, error) {
	data, err := specs.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("чтение %s: %w", name, err)
	}

	doc, err := openapi3.NewLoader().LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("разбор %s: %w", name, err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("валидация %s: %w", name, err)
	}
	return doc, nil
}

// Handler возвращает обработчик, отдающий документ в JSON.
func Handler(doc *openapi3.T) (http.Handler, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("сериализация OpenAPI: %w", err)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}), nil
}
