// Package broadcast provides a generic in-memory pub/sub hub.
//
// Delivery never blocks the publisher: when a subscriber's buffer is full the message is dropped
// for that subscriber only. Subscriptions end when their context is cancelled, when Close is
// called on the subscriber, or when the broadcaster itself is closed; in every case the receive
// channel is closed so range loops terminate.
//
//	b := broadcast.NewMemoryBroadcaster[Event](16)
//	defer b.Close()
//
//	sub := b.Subscribe(ctx)
//	go func() {
//		for msg := range sub.Receive(ctx) {
//			handle(msg.Data)
//		}
//	}()
//
//	_ = b.Broadcast(ctx, broadcast.Message[Event]{Topic: accountID, Data: ev})
//
// Topic is optional routing metadata. SubscribeTopic receives only messages whose Topic matches.
package broadcast
