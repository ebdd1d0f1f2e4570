package privatepub_test

import (
	"context"
	"log"
	"net/http"

	"github.com/privatepub/privatepub"
)

func Example() {
	config, err := privatepub.LoadConfig("config/private_pub.yml", "production")
	if err != nil {
		log.Fatal(err)
	}

	p, err := privatepub.NewPublisher(config)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := p.Publish(context.Background(), "/messages/new", privatepub.Data(map[string]string{"body": "Hello"}))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	log.Println(resp.Status)
}

func ExampleSigner_Subscription() {
	s, err := privatepub.NewSigner(privatepub.Config{Server: "http://localhost:9292/faye", SecretToken: "!ChangeMe!"})
	if err != nil {
		log.Fatal(err)
	}

	// Hand the subscription to the browser, which sends it back in the ext field of its /meta/subscribe message.
	sub, err := s.Subscription("/messages/new", privatepub.ActionSubscribe)
	if err != nil {
		log.Fatal(err)
	}

	log.Println(sub.Signature)
}

func ExampleNewHandler() {
	store := privatepub.NewConfigStore()
	store.Set(privatepub.Config{SecretToken: "!ChangeMe!"})

	h, err := privatepub.NewHandler(store)
	if err != nil {
		log.Fatal(err)
	}

	log.Panic(http.ListenAndServe("127.0.0.1:9293", h))
}
