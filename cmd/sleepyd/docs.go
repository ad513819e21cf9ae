package main

// General API documentation for swaggo. Run `make swagger-gen` to regenerate.
//
// @title           sleepy API
// @version         1.0
// @description     HTTP API for presence/status broadcasting.
//
// @contact.name   sleepy maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
