// Package cafematch ranks cafés from a fixed catalog against free-text queries
// and the user's preferences.
//
// Relevance comes from an OpenAI-compatible chat completion service, with a
// deterministic keyword heuristic standing in when the service is skipped or
// fails. Remote scores can be cached in Redis.
//
// # One-shot search
//
//	client, _ := cafematch.New(
//	    cafematch.WithCatalogFile("data/cafes.json"),
//	    cafematch.WithRelevance(os.Getenv("OPENAI_API_KEY"), "", ""),
//	)
//	defer client.Close()
//	res, _ := client.Search(ctx, "quiet place to study")
//	for _, m := range res.Matches {
//	    fmt.Println(m.Cafe.Name, m.Score)
//	}
//
// # Live input
//
// A Session debounces keystrokes and only ever shows the results of the
// latest query:
//
//	s := client.NewSession()
//	defer s.Close()
//	s.SetQuery("qui")
//	s.SetQuery("quiet")
//	s.Wait()
//	fmt.Println(s.Results().Matches)
package cafematch
