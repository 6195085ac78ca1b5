// Package security builds TLS configurations for bucketgate.
//
// The same TLSConfig block serves both directions: the HTTP listener
// (ServerConfig, optionally requiring client certificates) and the
// connection to a self-hosted object store signed by a private CA
// (ClientConfig).
//
//	objstore:
//	  tls:
//	    ca_file: /etc/bucketgate/minio-ca.pem
//	server:
//	  tls:
//	    cert_file: /etc/bucketgate/tls.crt
//	    key_file: /etc/bucketgate/tls.key
package security
