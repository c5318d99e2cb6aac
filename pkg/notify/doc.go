// Package notify delivers subscription lifecycle notifications. It
// implements the subscription.Notifier interface twice: SlogNotifier for
// development and EmailNotifier for production delivery through Postmark.
// Delivery failures never feed back into billing state; the lifecycle
// service logs them and moves on.
package notify
