// Пакет generated — типы и chi-обвязка HTTP API по контракту openapi.yaml.
// types.go и server.go выпускает oapi-codegen (models и chi-server),
// конфигурации лежат рядом: oapi-codegen.*.yaml.
package generated

// Источник истины — openapi.yaml. После изменения контракта:
//
//	go generate ./internal/api/generated
//
// spec.go (встраивание контракта) не генерируется.

//go:generate go run github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen@v2.5.0 --config=oapi-codegen.types.yaml openapi.yaml
//go:generate go run github.com/oapi-codegen/oapi-codegen/v2/cmd/oapi-codegen@v2.5.0 --config=oapi-codegen.server.yaml openapi.yaml
