// Package silverline embeds the silverline assistant gateway in a Go program.
//
// The client runs the same pipeline as the HTTP server: daily quota gate,
// assistant call, usage snapshot. Usage is kept in memory by default or in
// Valkey/Redis when configured.
//
//	client, _ := silverline.New(ctx,
//	    silverline.WithOpenAI(os.Getenv("OPENAI_API_KEY"), ""),
//	    silverline.WithValkey("localhost:6379", ""),
//	)
//	defer client.Close()
//
//	user := silverline.User{ID: "margaret", Tier: silverline.TierFree}
//	reply, err := client.Chat(ctx, user, "How do I make the text bigger?", nil)
//	if errors.Is(err, silverline.ErrQuotaExceeded) {
//	    // show the upgrade prompt
//	}
//	fmt.Println(reply.Reply, reply.Usage.Remaining)
package silverline
