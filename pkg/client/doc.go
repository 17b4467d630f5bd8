// Package client connects to a set of remote MCP servers and turns what they
// offer into callables for the planner.
//
// A Bootstrapper runs one session setup against a fixed list of endpoint
// URLs:
//
//  1. initialize is sent to every endpoint concurrently. Only HTTP 200
//     answers with a result count as initialized.
//  2. notifications/initialized goes to initialized endpoints and
//     notifications/cancelled to the others.
//  3. resources/list, prompts/list and tools/list are sent to the
//     initialized endpoints, either one fan-out per method or, with
//     WithBatchDiscovery, one JSON-RPC array per endpoint.
//  4. Every discovered resource, prompt and tool becomes a Function.
//
// The resulting FunctionTable always starts with the two built-ins,
// without_function and check_process. Remote callables follow, then
// statically bound catalog tools and user functions, which win on name
// collisions.
//
// # Usage
//
//	fetcher := transport.NewHTTPFetcher(transport.WithConcurrency(8))
//	b := client.NewBootstrapper(fetcher, urls, client.WithLogger(logger))
//	session, err := b.Bootstrap(ctx)
//	if err != nil {
//	    return err
//	}
//	if session.Failure != nil {
//	    logger.Warn("running without MCP servers", logging.ErrorField(session.Failure))
//	}
//	for _, d := range session.Functions.Declarations() {
//	    fmt.Println(d.Name)
//	}
//
// Endpoint failures never fail Bootstrap; they are recorded on the Endpoint
// and, when nothing initialized, on Session.Failure.
package client
