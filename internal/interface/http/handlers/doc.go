// Package handlers contains the HTTP building blocks of the bot process:
// dependency readiness checks, the Telegram webhook receiver and the
// middleware chain.
//
//	ready := handlers.NewReadiness(version)
//	ready.Add("postgres", handlers.PingCheck(pg))
//	ready.Add("redis", handlers.PingCheck(cache))
//
//	hook := handlers.NewWebhook(secret, bot.HandleUpdate, logger)
//	mux.Handle("POST /webhook/telegram", hook)
package handlers
