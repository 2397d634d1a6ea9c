package domain

type Connection interface {
	ID() string
	Send(data []byte) error
	Close() error
}

type MessageHandler interface {
	Handle(conn Connection, data []byte)
	Connect(conn Connection)
	Disconnect(conn Connection)
}
