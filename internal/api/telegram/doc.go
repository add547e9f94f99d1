// Package telegram implements the chat commands of the watcher bot.
//
// /start replies with an inline "check now" button; pressing it runs one
// poll cycle through the same lock as the scheduled ticker and reports back
// by editing the message. Updates are received with getUpdates long polling.
package telegram
