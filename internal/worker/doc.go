// Package worker implements the CEL worker lifecycle and Redis Streams integration.
//
// The worker reads evaluation requests from a Redis stream through a consumer
// group, evaluates an expression or a routing table against the request
// bindings, and publishes results to a result stream. Failed requests are
// published to the result stream name suffixed with ".errors".
//
// A request is a JSON document in the "data" field of a stream entry:
//
//	{
//	  "request_id": "42",
//	  "expression": "state.score > 0.8",
//	  "bindings": {"state": {"score": 0.93}},
//	  "bindings_key": "session-7",
//	  "template": "{{request_id}}: {{json result}}"
//	}
//
// A routing request carries "rules", "fallback", "mode" and "strict" in
// place of "expression". Bindings named by "bindings_key" are loaded from
// the BindingsStore and overlaid by the inline ones.
//
// Example usage:
//
//	cfg, _ := config.Load()
//	redisClient := redis.NewClient(cfg.RedisOptions())
//	evaluator, _ := cel.NewEvaluator(cfg.EnvOptions(logger)...)
//	store := worker.NewBindingsStore(redisClient, cfg.BindingsKeyPrefix, cfg.BindingsTTL, logger)
//
//	w := worker.NewWorker(cfg, redisClient, evaluator, router.NewRouter(evaluator, logger), store, logger)
//	if err := w.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// Health checks are provided via a separate HTTP server:
//
//	healthServer := worker.NewHealthServer(8082, redisClient, evaluator, logger)
//	healthServer.Start()
//	defer healthServer.Stop()
package worker
