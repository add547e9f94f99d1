// Package telegram adapts the go-telegram-bot-api library to the watcher.
//
// Client binds every Bot API call to a context and keeps the token out of
// returned errors. Notifier posts HTML messages and chart images to the
// configured channel; the update helpers back the chat commands in
// internal/api/telegram.
package telegram
