// Package config loads mobilityd configuration with viper.
//
// Values come from a YAML file (found under cmd/<service>/config.yml or
// config/config.yml unless given explicitly), an optional .env file loaded
// with godotenv, and MOBILITYKIT_ environment variables, in increasing
// precedence:
//
//	cfg, err := config.Load("mobilityd", config.WithConfigFile("config.yml"))
//
// Static providers are declared per family:
//
//	bss:
//	  providers:
//	    - class: gbfs
//	      args: {id: velib, url: "https://example/gbfs/station_status.json", network: Velib}
//	street_network:
//	  backends:
//	    - class: jormungandr.street_network.kraken.Kraken
//	      args: {id: kraken, address: "kraken:5000", modes: [walking, bike, car]}
package config
