// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package messaging routes messages between agents.
//
// A Registry holds one FIFO mailbox per agent. Subscriptions record which
// agents want copies of another agent's outgoing messages. The Broker ties
// the two together:
//
//	broker, err := messaging.NewBroker()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer broker.Stop()
//	broker.Register("parser")
//	broker.Register("vector_store")
//	broker.Subscribe("vector_store", "parser")
//
//	ok, err := broker.Publish(ctx, core.NewMessage(id, "parser", "", text, "", nil))
//	msg, found, err := broker.Next(ctx, "vector_store", time.Second)
//
// Publish resolves the explicit receiver plus every subscriber of the sender,
// collapses duplicates, and delivers one copy to each target concurrently.
// A failed delivery to one target never prevents delivery to the others.
//
// Communicator is a simpler synchronous variant with the same message type
// and no subscriptions.
package messaging
