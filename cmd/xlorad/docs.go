package main

// General API documentation for swaggo. Run `swag init -g cmd/xlorad/docs.go` to regenerate.
//
// @title           xlorad API
// @version         0.1.0
// @description     Chat completion server for X-LoRA adapter stacks over quantized GGUF checkpoints.
//
// @contact.name   xlorad maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
