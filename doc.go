// Package solstream subscribes to a Yellowstone-style Solana update feed and
// delivers decoded DEX events to a handler.
//
// # Sessions
//
// A Client is a handle to one subscription session. The session moves through
// the states Idle, Connected, Subscribed, Streaming and Stopped. Subscribe
// compiles the filters into a request, connects, opens the stream and starts
// the read loop, returning once the session is streaming. Setup errors are
// returned by Subscribe; errors of a streaming session end the session and are
// reported once, through Subscription.OnError and Err.
//
// Clones made with Clone share the session: stopping any of them stops it for
// all. Stop may be called any number of times from any goroutine.
//
// The handler runs on the read loop, one event at a time, in the order the
// feed sent the underlying updates. A slow handler holds up reading; use
// sink.Queue to decouple them. A handler that panics ends the session with a
// *HandlerPanicError, a decoder that panics with a *DecoderPanicError.
//
// There is no reconnection: to resume after an error, create a new Client.
//
// # Example
//
//	client, err := solstream.New("https://grpc.example.com", token, solstream.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	accounts, transactions := filter.ForPrograms(event.ProgramIDs(protocols))
//	err = client.Subscribe(ctx, solstream.Subscription{
//	    Protocols:    protocols,
//	    Accounts:     accounts,
//	    Transactions: transactions,
//	}, func(ev event.DexEvent) {
//	    tlog.Get(ctx).Info("Event", zap.Object("meta", ev.Metadata()))
//	})
//	if err != nil {
//	    return err
//	}
//	<-client.Done()
//	return client.Err()
package solstream
