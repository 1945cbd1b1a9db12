// Package logger provides structured logging for demandflow using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers. Stream stages log through a component logger
// obtained from the registry, so an application can silence or redirect a
// single stage without touching the rest.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("observe-on")
//	log.Debug("link subscribed", logger.Fields(logger.FieldLinkID, id))
package logger
