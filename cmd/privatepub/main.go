package main

import (
	"log"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCmd(viper.GetViper()).Execute(); err != nil {
		log.Fatalln(err)
	}
}
