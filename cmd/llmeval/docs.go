package main

// General API documentation for swaggo. Regenerate with `swag init -g cmd/llmeval/docs.go -o internal/httpapi/docs`.
//
// @title           llmeval API
// @version         1.0
// @description     HTTP API for picking a local instruct model, loading it and streaming generations.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
